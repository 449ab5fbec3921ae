package data

import (
	"time"

	"github.com/dustin/go-humanize"
)

// FileStat is the basic attribute view of a remote object.
// It is also what every ObjectStorageBackend reports from HeadObject.
type FileStat struct {
	// Remote key within the backend
	Key string `json:"key"`

	Type FileType `json:"type"`

	// Size in bytes, -1 if the store did not report one
	Size int64 `json:"size"`

	ModTime time.Time `json:"mod_time"`

	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
}

func (s *FileStat) IsDir() bool {
	return s.Type == FileTypeDirectory
}

func (s *FileStat) IsRegular() bool {
	return s.Type == FileTypeFile
}

// FileKey is the store-wide identity of the object, its ETag if present.
func (s *FileStat) FileKey() string {
	if s.ETag != "" {
		return s.ETag
	}
	return s.Key
}

// HumanSize renders Size for log lines.
func (s *FileStat) HumanSize() string {
	if s.Size < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(s.Size))
}
