package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	CapabilityObjectStorage BackendCapability = "object_storage"
	// CapabilityRangedReads marks backends implementing RangeReader
	CapabilityRangedReads BackendCapability = "ranged_reads"
	// CapabilityPersistent marks backends whose content survives Close
	CapabilityPersistent BackendCapability = "persistent"
	CapabilityStreaming  BackendCapability = "streaming"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities []BackendCapability `json:"capabilities"`
	// MaxObjectSize is the largest accepted object, 0 if unlimited
	MaxObjectSize int64 `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(capability BackendCapability) bool {
	return bc != nil && slices.Contains(bc.Capabilities, capability)
}

// Accepts reports whether an object of size bytes can be stored.
func (bc *BackendCapabilities) Accepts(size int64) bool {
	return bc == nil || bc.MaxObjectSize <= 0 || size <= bc.MaxObjectSize
}

// SupportsRangedReads reports whether b can serve reads from an offset.
func SupportsRangedReads(b ObjectStorageBackend) (RangeReader, bool) {
	if !b.GetCapabilities().Contains(CapabilityRangedReads) {
		return nil, false
	}
	reader, ok := b.(RangeReader)
	return reader, ok
}
