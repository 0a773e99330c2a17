// Package watermark builds the configuration handed to the external document renderer.
// Rendering itself happens elsewhere.
package watermark

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// Supported overlay positions.
const (
	PositionDiagonal    = "diagonal"
	PositionCenter      = "center"
	PositionFooter      = "footer"
	PositionTopRight    = "top-right"
	PositionBottomRight = "bottom-right"
)

const (
	defaultOpacity  = 0.3
	defaultPosition = PositionDiagonal
	maxTextLength   = 200
)

// Config is the renderer input stored on the NDA.
type Config struct {
	Enabled          bool    `json:"enabled"`
	Text             string  `json:"text"`
	Opacity          float64 `json:"opacity"`
	Position         string  `json:"position"`
	IncludeTimestamp bool    `json:"include_timestamp"`
	IncludeUserID    bool    `json:"include_user_id"`
}

// Options lets the owner override renderer defaults at approval time.
type Options struct {
	Text             string
	Opacity          float64
	Position         string
	IncludeTimestamp *bool
	IncludeUserID    *bool
}

// Build returns the watermark configuration for a signer viewing an item.
// Out of range values fall back to defaults rather than failing the approval.
func Build(signerID, itemID string, opts Options) Config {
	cfg := Config{
		Enabled:          true,
		Text:             strings.TrimSpace(opts.Text),
		Opacity:          opts.Opacity,
		Position:         strings.ToLower(strings.TrimSpace(opts.Position)),
		IncludeTimestamp: true,
		IncludeUserID:    true,
	}

	if cfg.Text == "" {
		cfg.Text = fmt.Sprintf("Confidential - %s - %s", itemID, signerID)
	}
	if len(cfg.Text) > maxTextLength {
		cfg.Text = cfg.Text[:maxTextLength]
	}
	if cfg.Opacity <= 0 || cfg.Opacity > 1 {
		cfg.Opacity = defaultOpacity
	}
	if !validPosition(cfg.Position) {
		cfg.Position = defaultPosition
	}
	if opts.IncludeTimestamp != nil {
		cfg.IncludeTimestamp = *opts.IncludeTimestamp
	}
	if opts.IncludeUserID != nil {
		cfg.IncludeUserID = *opts.IncludeUserID
	}
	return cfg
}

// JSON encodes the config for the watermark_config column.
func (c Config) JSON() (datatypes.JSON, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// Decode reads a stored watermark_config column. An empty column decodes to a disabled config.
func Decode(data datatypes.JSON) (Config, error) {
	var cfg Config
	if len(data) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(data, &cfg)
	return cfg, err
}

func validPosition(position string) bool {
	switch position {
	case PositionDiagonal, PositionCenter, PositionFooter, PositionTopRight, PositionBottomRight:
		return true
	}
	return false
}
