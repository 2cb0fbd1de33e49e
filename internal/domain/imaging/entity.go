package imaging

import (
	"encoding/base64"
	"errors"
)

// ErrInvalidImage covers missing files, unsupported types, undecodable data
// and files over the size ceiling.
var ErrInvalidImage = errors.New("invalid image file or format")

// Image is an X-ray ready to be sent to the inference provider.
type Image struct {
	Path     string `json:"path"`
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"file_size"`
	Data     []byte `json:"-"`
}

// DataURL renders the image as an inline base64 data URL.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
