package storage

import (
	"net/http"
	"path"
	"strings"
)

// Allowed upload content types.
var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// IsAllowedType reports whether contentType may be uploaded.
func IsAllowedType(contentType string) bool {
	return allowedTypes[baseType(contentType)]
}

// SniffContentType inspects the leading bytes of an upload.
func SniffContentType(head []byte) string {
	return baseType(http.DetectContentType(head))
}

func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func detectContentType(name string, body []byte) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".pdf":
		return "application/pdf"
	}
	return SniffContentType(body)
}
