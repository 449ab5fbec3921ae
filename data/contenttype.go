package data

import (
	"path"
	"strings"
)

const (
	ContentTypeDirectory = "application/x-directory"
	ContentTypeStream    = "application/octet-stream"
)

var extensionContentTypes = map[string]string{
	".txt":  "text/plain",
	".html": "text/html",
	".css":  "text/css",
	".js":   "text/javascript",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".json": "application/json",
	".xml":  "application/xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
}

// ContentTypeOf guesses the content type of key from its extension.
func ContentTypeOf(key string) string {
	if contentType, exists := extensionContentTypes[strings.ToLower(path.Ext(key))]; exists {
		return contentType
	}
	return ContentTypeStream
}
