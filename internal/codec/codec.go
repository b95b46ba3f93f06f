// Package codec frames JSON payloads for the system_data table and the local cache.
// Compressed content is "LZ|" followed by lz-string's UTF-16 encoding of the JSON text.
// Rows written before compression was introduced hold plain JSON and still decode.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	lzstring "github.com/daku10/go-lz-string"
)

// Prefix tags compressed content.
const Prefix = "LZ|"

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed payload")

// Encode serializes v to JSON and compresses it behind Prefix.
func Encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	compressed, err := lzstring.CompressToUTF16(string(raw))
	if err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}
	return Prefix + string(utf16.Decode(compressed)), nil
}

// IsCompressed reports whether content carries the compression tag.
func IsCompressed(content string) bool {
	return strings.HasPrefix(content, Prefix)
}

// DecodeRaw returns the JSON text held by content, decompressing it when tagged.
func DecodeRaw(content string) (json.RawMessage, error) {
	text := content
	if IsCompressed(content) {
		decompressed, err := lzstring.DecompressFromUTF16(utf16.Encode([]rune(strings.TrimPrefix(content, Prefix))))
		if err != nil {
			return nil, fmt.Errorf("%w: decompress: %v", ErrMalformed, err)
		}
		text = decompressed
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty content", ErrMalformed)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	return json.RawMessage(text), nil
}

// Decode unpacks content into out.
func Decode(content string, out any) error {
	raw, err := DecodeRaw(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
