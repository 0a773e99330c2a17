package watermark

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildDefaults(t *testing.T) {
	cfg := Build("investor-1", "pitch-9", Options{})

	require.True(t, cfg.Enabled)
	require.Equal(t, "Confidential - pitch-9 - investor-1", cfg.Text)
	require.InDelta(t, 0.3, cfg.Opacity, 1e-9)
	require.Equal(t, PositionDiagonal, cfg.Position)
	require.True(t, cfg.IncludeTimestamp)
	require.True(t, cfg.IncludeUserID)
}

func TestBuildOverrides(t *testing.T) {
	off := false
	cfg := Build("investor-1", "pitch-9", Options{
		Text:             "  Studio draft  ",
		Opacity:          0.75,
		Position:         "Footer",
		IncludeTimestamp: &off,
	})

	require.Equal(t, "Studio draft", cfg.Text)
	require.InDelta(t, 0.75, cfg.Opacity, 1e-9)
	require.Equal(t, PositionFooter, cfg.Position)
	require.False(t, cfg.IncludeTimestamp)
	require.True(t, cfg.IncludeUserID)
}

func TestBuildClampsInvalidValues(t *testing.T) {
	cfg := Build("s", "i", Options{Opacity: 4, Position: "sideways"})

	require.InDelta(t, defaultOpacity, cfg.Opacity, 1e-9)
	require.Equal(t, defaultPosition, cfg.Position)
}

func TestJSONDecodeRoundTrip(t *testing.T) {
	cfg := Build("investor-1", "pitch-9", Options{})
	data, err := cfg.JSON()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, cfg, decoded)

	empty, err := Decode(nil)
	require.NoError(t, err)
	require.False(t, empty.Enabled)
}
