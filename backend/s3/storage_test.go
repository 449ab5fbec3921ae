package s3

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	objerrors "github.com/mwantia/objfs/data/errors"
)

func TestObjectKeys(t *testing.T) {
	tests := []struct {
		key    string
		object string
		marker string
	}{
		{"/", "", ""},
		{"/alice", "alice", "alice/"},
		{"alice/stor/", "alice/stor", "alice/stor/"},
		{"//alice//stor/file.txt", "alice/stor/file.txt", "alice/stor/file.txt/"},
	}

	for _, tt := range tests {
		if got := objectKey(tt.key); got != tt.object {
			t.Errorf("objectKey(%q): expected %q, got %q", tt.key, tt.object, got)
		}
		if got := markerKey(tt.key); got != tt.marker {
			t.Errorf("markerKey(%q): expected %q, got %q", tt.key, tt.marker, got)
		}
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		response minio.ErrorResponse
		expected error
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound}, objerrors.ErrNotExist},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, objerrors.ErrNotExist},
		{"forbidden", minio.ErrorResponse{StatusCode: http.StatusForbidden}, objerrors.ErrAccessDenied},
		{"unauthorized", minio.ErrorResponse{StatusCode: http.StatusUnauthorized}, objerrors.ErrAccessDenied},
		{"method not allowed", minio.ErrorResponse{StatusCode: http.StatusMethodNotAllowed}, objerrors.ErrAccessDenied},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, objerrors.ErrAccessDenied},
		{"server error", minio.ErrorResponse{Code: "InternalError", StatusCode: http.StatusInternalServerError}, objerrors.ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.response, "get", "/alice/file")
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}

	if err := translate(errors.New("connection reset"), "put", "/alice"); !errors.Is(err, objerrors.ErrIO) {
		t.Errorf("Expected ErrIO for a transport error, got %v", err)
	}
}
