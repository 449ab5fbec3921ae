package ephemeral

import (
	"context"
	"sync"
	"time"

	"github.com/mwantia/objfs/backend"
	"github.com/mwantia/objfs/data"
	"github.com/tidwall/btree"
)

// EphemeralBackend keeps every object in an in-memory B-tree ordered by key.
// Content is lost once the backend is closed.
type EphemeralBackend struct {
	mu sync.RWMutex

	objects *btree.Map[string, *object]
	now     func() time.Time
}

type object struct {
	fileType    data.FileType
	content     []byte
	contentType string
	etag        string
	modTime     time.Time
}

func NewEphemeralBackend() *EphemeralBackend {
	eb := &EphemeralBackend{
		objects: btree.NewMap[string, *object](0),
		now:     time.Now,
	}
	eb.objects.Set("/", eb.newDirectory())

	return eb
}

func (eb *EphemeralBackend) newDirectory() *object {
	return &object{
		fileType:    data.FileTypeDirectory,
		contentType: data.ContentTypeDirectory,
		modTime:     eb.now(),
	}
}

// Name returns the identifier name defined for this backend
func (*EphemeralBackend) Name() string {
	return "ephemeral"
}

// Open is part of the lifecycle behaviour and gets called before the first request.
func (eb *EphemeralBackend) Open(ctx context.Context) error {
	return nil
}

// Close is part of the lifecycle behaviour and drops all stored objects.
func (eb *EphemeralBackend) Close(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.objects.Clear()
	eb.objects.Set("/", eb.newDirectory())

	return nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (eb *EphemeralBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityRangedReads,
		},
	}
}
