package media

import (
	"encoding/base64"
	"strings"

	"github.com/apresai/shortsmith/internal/apperr"
	"github.com/apresai/shortsmith/internal/genai"
)

// DataURI is a base64 data URI such as "data:image/png;base64,iVBOR...".
type DataURI string

// EncodeDataURI builds a base64 data URI.
func EncodeDataURI(mime string, data []byte) DataURI {
	return DataURI("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// ParseDataURI decodes a base64 data URI. Anything else is an InvalidRequest.
func ParseDataURI(uri DataURI) (*genai.Blob, error) {
	rest, ok := strings.CutPrefix(string(uri), "data:")
	if !ok {
		return nil, apperr.Invalid("expected a data URI (data:<mime>;base64,...)")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, apperr.Invalid("data URI has no payload")
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok || mime == "" || !strings.Contains(mime, "/") {
		return nil, apperr.Invalid("data URI must be base64 encoded with a MIME type")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, apperr.Invalid("data URI payload is not valid base64")
	}
	if len(data) == 0 {
		return nil, apperr.Invalid("data URI payload is empty")
	}
	return &genai.Blob{MIMEType: mime, Data: data}, nil
}

// ImageMIME sniffs PNG, JPEG and WEBP signatures. It returns "" for anything else.
func ImageMIME(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	}
	return ""
}
