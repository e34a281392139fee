package assets

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
)

const placeholderSize = 256

// placeholderPNG is a 256x256 light grey image with a darker frame,
// substituted for figures that cannot be located.
var placeholderPNG = mustEncodePlaceholder()

func mustEncodePlaceholder() []byte {
	img := image.NewGray(image.Rect(0, 0, placeholderSize, placeholderSize))
	fill := color.Gray{Y: 0xe0}
	frame := color.Gray{Y: 0x99}
	for y := 0; y < placeholderSize; y++ {
		for x := 0; x < placeholderSize; x++ {
			c := fill
			if x < 4 || y < 4 || x >= placeholderSize-4 || y >= placeholderSize-4 {
				c = frame
			}
			img.SetGray(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Placeholder returns the built-in fallback image.
func Placeholder() *Asset {
	data := make([]byte, len(placeholderPNG))
	copy(data, placeholderPNG)
	return &Asset{
		Path:        "placeholder.png",
		Data:        data,
		MIMEType:    "image/png",
		Placeholder: true,
	}
}

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
}

// MIMEType derives a content type from the file extension, defaulting to image/png.
func MIMEType(p string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(p))]; ok {
		return mt
	}
	return "image/png"
}

// DataURI encodes the asset as an inline base64 data URI.
func (a *Asset) DataURI() string {
	return "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
