package images

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const (
	dataScheme   = "data:"
	base64Marker = ";base64"
	// DefaultMIME is assumed for bare base64 payloads that carry no header.
	DefaultMIME = "image/jpeg"
)

// ParseDataURI splits a data:<mime>;base64,<payload> string.
// ok is false when s carries no data-URI header.
func ParseDataURI(s string) (mime, payload string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, dataScheme) {
		return "", s, false
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return "", s, false
	}
	meta := s[len(dataScheme):idx]
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		mime = meta[:semi]
	} else {
		mime = meta
	}
	return mime, s[idx+1:], true
}

// DataURI wraps encoded bytes in a base64 data-URI header.
func DataURI(mime string, b []byte) string {
	if mime == "" {
		mime = DefaultMIME
	}
	return dataScheme + mime + base64Marker + "," + base64.StdEncoding.EncodeToString(b)
}

// Unwrap turns any accepted input form into encoded image bytes.
//
// Binary data with a known image signature is returned as is. Anything else is
// treated as base64 text, with or without a data-URI header; bare text is
// assumed to be JPEG.
//
// Arguments:
//   - input: Raw image bytes, a data URI, or bare base64 text.
//
// Returns:
//   - The encoded image bytes.
//   - The MIME type declared or assumed for the data.
//   - An error if the text is not valid base64.
func Unwrap(input []byte) ([]byte, string, error) {
	if f := DetectFormat(input); f != FormatUnknown {
		return input, f.MIME(), nil
	}

	mime, payload, ok := ParseDataURI(string(bytes.TrimSpace(input)))
	if !ok {
		mime = DefaultMIME
	}
	if mime == "" {
		mime = DefaultMIME
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return nil, "", errors.Wrap(err, "invalid base64 image payload")
	}
	return data, mime, nil
}

// decodeBase64 tries the standard alphabet first, then the URL-safe and unpadded variants.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty payload")
	}
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
