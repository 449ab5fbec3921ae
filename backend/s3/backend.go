package s3

import (
	"context"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data/errors"
)

// S3Backend talks to any S3 compatible object store through minio-go.
// Directories are zero-byte marker objects whose key ends with a separator.
type S3Backend struct {
	client     *minio.Client
	bucketName string
}

func NewS3Backend(endpoint, bucketName, accessKey, secretKey string, useSsl bool) (*S3Backend, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSsl,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and verifies that the bucket exists.
func (sb *S3Backend) Open(ctx context.Context) error {
	exists, err := sb.client.BucketExists(ctx, sb.bucketName)
	if err != nil {
		return translate(err, "open", sb.bucketName)
	}

	if !exists {
		return errors.NotExist(fmt.Errorf("bucket does not exist"), "open", sb.bucketName)
	}

	return nil
}

// Close is part of the lifecycle behaviour. The minio client keeps no open connection state.
func (sb *S3Backend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityRangedReads,
			backend.CapabilityPersistent,
			backend.CapabilityStreaming,
		},
	}
}

// translate maps S3 error responses onto the error taxonomy.
func translate(err error, op, key string) error {
	response := minio.ToErrorResponse(err)

	switch {
	case response.Code == "NoSuchKey" || response.Code == "NoSuchBucket" || response.StatusCode == http.StatusNotFound:
		return errors.NotExist(err, op, key)
	case response.StatusCode == http.StatusUnauthorized,
		response.StatusCode == http.StatusForbidden,
		response.StatusCode == http.StatusMethodNotAllowed,
		response.Code == "AccessDenied":
		return errors.AccessDenied(err, op, key)
	default:
		return errors.IOFailure(err, op, key)
	}
}
