// Package encoding provides text encoding utilities for model container name tables.
package encoding

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// NameCodec converts between name-table bytes and Go strings.
type NameCodec interface {
	Decode(raw []byte) string
	Encode(s string) ([]byte, error)
}

// Raw passes name bytes through unchanged. Shipped files use plain ASCII
// names, so this is the default.
var Raw NameCodec = rawCodec{}

// ShiftJIS decodes names written by Japanese tooling.
var ShiftJIS NameCodec = shiftJISCodec{}

type rawCodec struct{}

func (rawCodec) Decode(raw []byte) string { return string(raw) }

func (rawCodec) Encode(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("name %q contains a null byte", s)
	}
	return []byte(s), nil
}

type shiftJISCodec struct{}

// Decode converts Shift-JIS bytes to UTF-8. Bytes that are not valid
// Shift-JIS are returned unchanged so Encode can write them back as they were.
func (shiftJISCodec) Decode(raw []byte) string {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil || !utf8.Valid(result) || bytes.ContainsRune(result, utf8.RuneError) {
		return string(raw)
	}
	return string(result)
}

// Encode converts a UTF-8 string to Shift-JIS bytes. A string that is not
// valid UTF-8 came from Decode's fallback and is written as is.
func (shiftJISCodec) Encode(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return rawCodec{}.Encode(s)
	}
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		return nil, fmt.Errorf("encoding %q as Shift-JIS: %w", s, err)
	}
	if bytes.IndexByte(result, 0) >= 0 {
		return nil, fmt.Errorf("name %q contains a null byte", s)
	}
	return result, nil
}

// CodecByName returns the codec for a configuration value ("", "raw", "ascii",
// "utf8" or "shift_jis").
func CodecByName(name string) (NameCodec, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "", "raw", "ascii", "utf8":
		return Raw, nil
	case "shift_jis", "sjis", "shiftjis":
		return ShiftJIS, nil
	default:
		return nil, fmt.Errorf("unknown name encoding %q", name)
	}
}
