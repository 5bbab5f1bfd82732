package decode

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripUTF8BOM removes a leading UTF-8 byte-order mark, if present.
func stripUTF8BOM(b []byte) []byte {
	if bytes.HasPrefix(b, utf8BOM) {
		return b[len(utf8BOM):]
	}
	return b
}

// stripDataURIPrefix removes a leading "data:<mime>;base64," URI prefix,
// if present, returning the remainder unchanged otherwise.
func stripDataURIPrefix(b []byte) []byte {
	s := string(b)
	if !strings.HasPrefix(s, "data:") {
		return b
	}
	idx := strings.Index(s, ";base64,")
	if idx < 0 {
		return b
	}
	return b[idx+len(";base64,"):]
}

// decodeBase64Permissive base64-decodes s, tolerating missing padding and
// stray whitespace/newlines — real-world Stamps payloads are not always
// strictly RFC 4648. Falls back through standard, raw, and
// padding-corrected variants before giving up.
func decodeBase64Permissive(b []byte) ([]byte, error) {
	s := strings.TrimSpace(string(b))
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)

	if out, err := base64.StdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	if out, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	padded := s
	if m := len(padded) % 4; m != 0 {
		padded += strings.Repeat("=", 4-m)
	}
	if out, err := base64.StdEncoding.DecodeString(padded); err == nil {
		return out, nil
	}
	return nil, fmt.Errorf("decode: not valid base64")
}

// tryDecompress attempts zlib then gzip decompression, returning the first
// that succeeds.
func tryDecompress(b []byte) ([]byte, bool) {
	if r, err := zlib.NewReader(bytes.NewReader(b)); err == nil {
		defer r.Close()
		if out, err := io.ReadAll(r); err == nil {
			return out, true
		}
	}
	if r, err := gzip.NewReader(bytes.NewReader(b)); err == nil {
		defer r.Close()
		if out, err := io.ReadAll(r); err == nil {
			return out, true
		}
	}
	return nil, false
}
