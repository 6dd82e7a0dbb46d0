// Package backends defines the capability boundary between the portable
// content model and the platform device APIs. A backend realizes device
// enumeration, device open, paged child enumeration, batched property
// fetch, object creation, deletion and block-oriented streams; everything
// above this boundary is platform independent.
package backends

import (
	"context"
	"errors"
	"io"
	"time"
)

// Common backend errors.
var (
	ErrNotFound = errors.New("backends: object not found")
	ErrClosed   = errors.New("backends: connection closed")
)

// ObjectID is the backend-native identifier of one content object. It is
// opaque above the backend boundary: the WPD adapter stores COM object
// IDs, the gvfs adapter stores absolute filesystem paths.
type ObjectID string

// Class is the backend-native content discriminator, already mapped from
// whatever the platform reports (a content-type GUID on Windows, the
// directory bit on Linux).
type Class int

const (
	// ClassUnknown is reported when the backend could not determine a
	// discriminator for the object.
	ClassUnknown Class = iota
	// ClassStorage marks a mounted volume (and, on Windows, functional
	// objects such as the synthetic device root).
	ClassStorage
	// ClassFolder marks a plain directory.
	ClassFolder
	// ClassFile marks a file with byte content.
	ClassFile
	// ClassDevice marks the device root itself.
	ClassDevice
)

// Object is the result of one batched property fetch. Adapters must fill
// every recognized property in a single round-trip and leave numeric
// fields that do not apply to the object's class at -1.
type Object struct {
	ID           ObjectID
	Name         string
	NameValid    bool // false when the primary name property could not be resolved
	Class        Class
	Size         int64
	Modified     time.Time
	Capacity     int64
	FreeCapacity int64
	Serial       string
}

// DeviceDesc describes one attached device as reported by the platform
// registry. Name may be empty when the platform has no friendly name; the
// caller falls back to the opened device's own properties.
type DeviceDesc struct {
	Name        string
	Description string
	Serial      string
}

// Root is one top-level entry of an opened device. Device marks the
// synthetic device root that must itself be enumerated one level to reach
// real storages (the Windows model); non-device roots are storages.
type Root struct {
	ID     ObjectID
	Name   string
	Device bool
}

// Registry is the platform's device-manager facility. Implementations may
// hold a process-wide session that is established lazily on first use and
// reclaimed only at process exit.
type Registry interface {
	// Enumerate lists the IDs of all attached portable devices.
	Enumerate(ctx context.Context) ([]string, error)

	// Describe resolves the display name and description for a device ID.
	Describe(ctx context.Context, id string) (DeviceDesc, error)

	// Open opens a device for content access. The returned Conn is owned
	// by the caller and must be closed.
	Open(ctx context.Context, id string) (Conn, error)
}

// Conn is an opened device connection.
type Conn interface {
	// Root returns the device-root object from which path resolution
	// starts.
	Root() Root

	// Roots returns the device's top-level content entries: one synthetic
	// device root on Windows, one entry per storage on Linux.
	Roots(ctx context.Context) ([]Root, error)

	// Properties performs one batched fetch of all recognized properties
	// of an object.
	Properties(ctx context.Context, id ObjectID) (Object, error)

	// Children starts a fresh enumeration of an object's immediate
	// children. The enumerator is not restartable.
	Children(ctx context.Context, id ObjectID) (Enumerator, error)

	// CreateFolder creates an empty directory object under parent. It
	// does not return the new object; callers re-resolve by name.
	CreateFolder(ctx context.Context, parent ObjectID, name string) error

	// CreateFile creates a file object of the given size under parent and
	// returns a stream for its content. The object's content is not
	// durable until Commit.
	CreateFile(ctx context.Context, parent ObjectID, name string, size int64) (WriteStream, error)

	// OpenRead opens the default resource of a file object for reading.
	OpenRead(ctx context.Context, id ObjectID) (ReadStream, error)

	// Delete removes an object, recursively when requested.
	Delete(ctx context.Context, id ObjectID, recursive bool) error

	// Close releases the device connection.
	Close() error
}

// Enumerator is a cursor over one child enumeration. Pages are a backend
// detail; callers only observe a sequence of IDs that ends with an empty
// page.
type Enumerator interface {
	// Next fetches the next page of child IDs. An empty result means the
	// enumeration is exhausted.
	Next(ctx context.Context) ([]ObjectID, error)

	// Release frees native resources held by the cursor. Safe to call
	// more than once.
	Release()
}

// ReadStream reads a file object's content. BlockSize reports the
// backend's optimal transfer size.
type ReadStream interface {
	io.ReadCloser
	BlockSize() int
}

// WriteStream writes a file object's content. Commit finalizes the
// transfer; without it the written object may be discarded or left
// partial by the device.
type WriteStream interface {
	io.WriteCloser
	BlockSize() int
	Commit() error
}

// SliceEnumerator returns an Enumerator serving the given IDs in pages of
// pageSize. Used by backends whose native listing is not paged.
func SliceEnumerator(ids []ObjectID, pageSize int) Enumerator {
	if pageSize <= 0 {
		pageSize = 16
	}
	return &sliceEnumerator{ids: ids, pageSize: pageSize}
}

type sliceEnumerator struct {
	ids      []ObjectID
	pageSize int
	off      int
}

func (e *sliceEnumerator) Next(ctx context.Context) ([]ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.off >= len(e.ids) {
		return nil, nil
	}
	end := e.off + e.pageSize
	if end > len(e.ids) {
		end = len(e.ids)
	}
	page := e.ids[e.off:end]
	e.off = end
	return page, nil
}

func (e *sliceEnumerator) Release() {}
