package service

import (
	"encoding/base64"
	"strings"

	apperrors "github.com/ginjaninja78/ward-census-aggregator/internal/errors"
)

// base64Encodings are tried in order; uploads arrive padded or unpadded, in
// the standard or the URL-safe alphabet.
var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 decodes a base64 spreadsheet payload. Surrounding and
// embedded whitespace (MIME line breaks) and a "data:...;base64," prefix are
// ignored. Failures are DECODE_ERROR AppErrors and no parsing is attempted.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ";base64,"); i >= 0 {
			payload = payload[i+len(";base64,"):]
		}
	}
	payload = strings.Join(strings.Fields(payload), "")

	if payload == "" {
		return nil, apperrors.DecodeError("empty payload", nil)
	}

	var firstErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	return nil, apperrors.DecodeError("payload is not valid base64", firstErr)
}

// ParseGroupBy splits a comma-separated column list, trimming names and
// dropping blanks.
func ParseGroupBy(header string) []string {
	var cols []string
	for _, part := range strings.Split(header, ",") {
		if col := strings.TrimSpace(part); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}
