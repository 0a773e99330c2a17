package app

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const minSignatureKeyBytes = 16

// DecodeKey decodes a key from hex or base64 encoding to raw bytes.
// Hex is tried first since generated defaults use it; anything else is taken verbatim.
func DecodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("key value is empty")
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return decoded, nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return decoded, nil
	}

	return []byte(v), nil
}
