package portable

import (
	"context"
	"sync"
	"time"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/internal/devpath"
	"github.com/portablefs/portablefs/metrics"
)

// ContentType classifies a content node. The numeric values are part of
// the public contract and are stable across backends.
type ContentType int

const (
	// ContentTypeUndefined marks a node whose class could not be
	// determined.
	ContentTypeUndefined ContentType = -1
	// ContentTypeStorage marks a mounted volume.
	ContentTypeStorage ContentType = 0
	// ContentTypeDirectory marks a plain directory.
	ContentTypeDirectory ContentType = 1
	// ContentTypeFile marks a file with byte content.
	ContentTypeFile ContentType = 2
	// ContentTypeDevice marks the device root itself.
	ContentTypeDevice ContentType = 3
)

func (t ContentType) String() string {
	switch t {
	case ContentTypeStorage:
		return "storage"
	case ContentTypeDirectory:
		return "directory"
	case ContentTypeFile:
		return "file"
	case ContentTypeDevice:
		return "device"
	default:
		return "undefined"
	}
}

// Properties holds the resolved attributes of a content node. Numeric
// fields that do not apply to the node's type are -1; the zero
// time.Time marks an unknown modification time.
type Properties struct {
	Name         string
	ContentType  ContentType
	Size         int64
	Modified     time.Time
	Capacity     int64
	FreeCapacity int64
	SerialNumber string
}

// Content is one node of a device's content tree: a storage, directory
// or file. Properties are fetched from the device in a single batched
// round-trip, at most once per Content; the result (or the failure) is
// memoized for the node's lifetime. Children are never cached; every
// enumeration reflects the device's current state.
type Content struct {
	dev *Device
	id  backends.ObjectID

	fullPath string

	once       sync.Once
	props      Properties
	resolveErr error

	// typ mirrors props.ContentType but may be known before resolution
	// (storage roots, the device root).
	typ ContentType
}

func newContent(d *Device, id backends.ObjectID, fullPath string) *Content {
	return &Content{dev: d, id: id, fullPath: fullPath, typ: ContentTypeUndefined}
}

// resolve performs the one-time batched property fetch and classifies
// the node. A failure to resolve the name property is not an error: the
// node degrades to a nameless directory so that tree traversal can
// continue past it.
func (c *Content) resolve(ctx context.Context) error {
	c.once.Do(func() {
		conn, err := c.dev.open(ctx)
		if err != nil {
			c.resolveErr = deviceErr("open", c.dev.id, err)
			return
		}
		obj, err := conn.Properties(ctx, c.id)
		metrics.PropertyFetchesTotal.Inc()
		if err != nil {
			c.resolveErr = contentErr("resolve properties", c.fullPath, err)
			return
		}

		p := Properties{
			ContentType:  c.typ,
			Size:         -1,
			Capacity:     -1,
			FreeCapacity: -1,
		}
		switch obj.Class {
		case backends.ClassStorage:
			p.ContentType = ContentTypeStorage
			p.Capacity = obj.Capacity
			p.FreeCapacity = obj.FreeCapacity
			p.SerialNumber = obj.Serial
		case backends.ClassFolder:
			p.ContentType = ContentTypeDirectory
		case backends.ClassFile:
			p.ContentType = ContentTypeFile
			p.Size = obj.Size
			p.Modified = obj.Modified
		case backends.ClassDevice:
			p.ContentType = ContentTypeDevice
			p.SerialNumber = obj.Serial
		}
		if obj.NameValid {
			p.Name = obj.Name
		} else {
			p.Name = ""
			p.ContentType = ContentTypeDirectory
		}
		c.props = p
		c.typ = p.ContentType
	})
	return c.resolveErr
}

// GetProperties resolves and returns the node's properties. The fetch
// happens at most once; repeated calls return the memoized result. It
// fails with a ContentIOError when the batched fetch itself fails.
func (c *Content) GetProperties(ctx context.Context) (Properties, error) {
	if err := c.resolve(ctx); err != nil {
		return Properties{}, err
	}
	return c.props, nil
}

// Type returns the node's content type, resolving properties if needed.
// It reports ContentTypeUndefined when resolution fails.
func (c *Content) Type(ctx context.Context) ContentType {
	c.resolve(ctx)
	return c.typ
}

// Name returns the last segment of the node's logical path.
func (c *Content) Name() string { return devpath.Base(c.fullPath) }

// FullName returns the node's logical path, rooted at the device name
// and joined with "/".
func (c *Content) FullName() string { return c.fullPath }

// Children starts a fresh enumeration of the node's immediate children.
// Nothing is cached: a new iterator always reflects the device's
// current state, including entries created or removed since the last
// enumeration.
func (c *Content) Children(ctx context.Context) *ChildIter {
	return &ChildIter{ctx: ctx, parent: c}
}

// GetChild finds the immediate child with the given name. It returns
// (nil, nil) when no such child exists; absence is not an error.
func (c *Content) GetChild(ctx context.Context, name string) (*Content, error) {
	it := c.Children(ctx)
	defer it.Release()
	for it.Next() {
		if it.Content().Name() == name {
			return it.Content(), nil
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// GetPath resolves a "/"-separated path relative to this node, one
// segment at a time. It returns (nil, nil) as soon as any segment is
// missing. An empty path resolves to the node itself.
func (c *Content) GetPath(ctx context.Context, path string) (*Content, error) {
	cur := c
	for _, seg := range devpath.Segments(path) {
		child, err := cur.GetChild(ctx, seg)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, nil
		}
		cur = child
	}
	return cur, nil
}

// CreateContent creates an empty directory named name under this node
// and returns it. The device assigns the new object's identity, so the
// result is re-resolved by a fresh enumeration rather than synthesized
// locally. It fails with a ContentIOError when the device rejects the
// create or the new entry cannot be found afterwards.
func (c *Content) CreateContent(ctx context.Context, name string) (*Content, error) {
	conn, err := c.dev.open(ctx)
	if err != nil {
		return nil, deviceErr("open", c.dev.id, err)
	}
	if err := conn.CreateFolder(ctx, c.id, name); err != nil {
		return nil, contentErr("create directory", devpath.Join(c.fullPath, name), err)
	}
	child, err := c.GetChild(ctx, name)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, contentErr("create directory", devpath.Join(c.fullPath, name), backends.ErrNotFound)
	}
	return child, nil
}

// Remove deletes the node. Directories and storages are deleted
// recursively; the recursion is best effort, and children that resist
// deletion do not stop the sweep. It fails with a ContentIOError when
// the node itself could not be deleted.
func (c *Content) Remove(ctx context.Context) error {
	conn, err := c.dev.open(ctx)
	if err != nil {
		return deviceErr("open", c.dev.id, err)
	}
	recursive := c.Type(ctx) != ContentTypeFile
	if err := conn.Delete(ctx, c.id, recursive); err != nil {
		return contentErr("remove", c.fullPath, err)
	}
	return nil
}
