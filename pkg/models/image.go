package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDataURL = errors.New("invalid data URL")

const DefaultMIMEType = "image/jpeg"

// Image is opaque binary image content plus its content type. It is
// serialized as a data URL so persisted history stays self-contained.
type Image struct {
	Data     []byte
	MIMEType string
}

func (i Image) IsEmpty() bool {
	return len(i.Data) == 0
}

// ContentType returns the MIME type, defaulting to image/jpeg.
func (i Image) ContentType() string {
	if i.MIMEType == "" {
		return DefaultMIMEType
	}
	return i.MIMEType
}

func (i Image) DataURL() string {
	if i.IsEmpty() {
		return ""
	}
	return "data:" + i.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func ParseDataURL(s string) (Image, error) {
	if s == "" {
		return Image{}, nil
	}
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURL)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURL)
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return Image{}, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

func (i Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.DataURL())
}

func (i *Image) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	img, err := ParseDataURL(s)
	if err != nil {
		return err
	}
	*i = img
	return nil
}
