// Package memdev provides an in-memory backend modeled after the remote
// property-bag protocol: opaque object IDs, a synthetic device root,
// paged child enumeration and committing write streams. It stands in
// when no platform backend is available and drives the test suite;
// call counters and fault hooks make backend round-trips observable.
package memdev

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/portablefs/portablefs/backends"
)

const (
	defaultPageSize  = 16
	defaultBlockSize = 256 * 1024
)

// RootID is the object ID of the synthetic device root.
const RootID backends.ObjectID = "DEVICE"

// Adapter implements backends.Registry over a set of scripted devices.
type Adapter struct {
	mu      sync.Mutex
	devices map[string]*Dev
	order   []string

	// EnumerateErr, when set, fails device enumeration outright.
	EnumerateErr error
}

// New creates an empty registry. Devices are added with Add.
func New() *Adapter {
	return &Adapter{devices: make(map[string]*Dev)}
}

// Add registers a new device under the given name and returns it for
// scripting. The name doubles as the device ID.
func (a *Adapter) Add(name, serial string) *Dev {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := &Dev{
		name:          name,
		serial:        serial,
		PageSize:      defaultPageSize,
		BlockSize:     defaultBlockSize,
		objects:       make(map[backends.ObjectID]*object),
		PropertyCalls: make(map[backends.ObjectID]int),
		ChildrenErr:   make(map[backends.ObjectID]error),
		PageErrAfter:  make(map[backends.ObjectID]int),
		InvalidName:   make(map[backends.ObjectID]bool),
	}
	d.objects[RootID] = &object{
		id:       RootID,
		name:     name,
		class:    backends.ClassStorage,
		size:     -1,
		capacity: -1,
		free:     -1,
		serial:   serial,
	}
	a.devices[name] = d
	a.order = append(a.order, name)
	return d
}

// Enumerate implements backends.Registry.
func (a *Adapter) Enumerate(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.EnumerateErr != nil {
		return nil, a.EnumerateErr
	}
	ids := make([]string, len(a.order))
	copy(ids, a.order)
	return ids, nil
}

// Describe implements backends.Registry.
func (a *Adapter) Describe(ctx context.Context, id string) (backends.DeviceDesc, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.devices[id]
	if !ok {
		return backends.DeviceDesc{}, fmt.Errorf("unknown device %q", id)
	}
	if d.DescribeErr != nil {
		return backends.DeviceDesc{}, d.DescribeErr
	}
	name := d.name
	if d.NoFriendlyName {
		name = ""
	}
	return backends.DeviceDesc{Name: name, Description: d.name, Serial: d.serial}, nil
}

// Open implements backends.Registry.
func (a *Adapter) Open(ctx context.Context, id string) (backends.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.devices[id]
	if !ok {
		return nil, fmt.Errorf("unknown device %q", id)
	}
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.Opens++
	return &conn{dev: d}, nil
}

// Dev is one scripted in-memory device. The exported fields configure
// paging, transfer block size and fault injection; they must be set
// before the device is used.
type Dev struct {
	name   string
	serial string

	PageSize  int
	BlockSize int

	// Opens counts how often the device was opened.
	Opens int

	// PropertyCalls counts batched property fetches per object.
	PropertyCalls map[backends.ObjectID]int

	// ChildrenErr fails enumeration of the given parent at open time.
	ChildrenErr map[backends.ObjectID]error

	// PageErrAfter fails enumeration of the given parent after serving
	// that many pages, leaving earlier pages valid.
	PageErrAfter map[backends.ObjectID]int

	// InvalidName makes the primary name property of the given object
	// unresolvable, triggering the caller's directory downgrade.
	InvalidName map[backends.ObjectID]bool

	// DescribeErr, NoFriendlyName and OpenErr script registry behavior
	// for this device.
	DescribeErr    error
	NoFriendlyName bool
	OpenErr        error

	objects map[backends.ObjectID]*object
	counter int
}

type object struct {
	id       backends.ObjectID
	name     string
	class    backends.Class
	size     int64
	modified time.Time
	capacity int64
	free     int64
	serial   string
	data     []byte
	children []backends.ObjectID
	parent   backends.ObjectID
}

func (d *Dev) nextID() backends.ObjectID {
	d.counter++
	return backends.ObjectID(fmt.Sprintf("o%X", d.counter))
}

// AddStorage adds a storage under the device root.
func (d *Dev) AddStorage(name string, capacity, free int64) backends.ObjectID {
	return d.add(RootID, &object{
		name:     name,
		class:    backends.ClassStorage,
		size:     -1,
		capacity: capacity,
		free:     free,
		serial:   d.serial,
	})
}

// AddFolder adds a directory under parent.
func (d *Dev) AddFolder(parent backends.ObjectID, name string) backends.ObjectID {
	return d.add(parent, &object{
		name:     name,
		class:    backends.ClassFolder,
		size:     -1,
		capacity: -1,
		free:     -1,
	})
}

// AddFile adds a file with the given content under parent.
func (d *Dev) AddFile(parent backends.ObjectID, name string, data []byte, modified time.Time) backends.ObjectID {
	return d.add(parent, &object{
		name:     name,
		class:    backends.ClassFile,
		size:     int64(len(data)),
		modified: modified,
		capacity: -1,
		free:     -1,
		data:     data,
	})
}

func (d *Dev) add(parent backends.ObjectID, obj *object) backends.ObjectID {
	obj.id = d.nextID()
	obj.parent = parent
	d.objects[obj.id] = obj
	p := d.objects[parent]
	p.children = append(p.children, obj.id)
	return obj.id
}

type conn struct {
	dev    *Dev
	closed bool
}

func (c *conn) Root() backends.Root {
	return backends.Root{ID: RootID, Name: c.dev.name, Device: true}
}

func (c *conn) Roots(ctx context.Context) ([]backends.Root, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	return []backends.Root{c.Root()}, nil
}

func (c *conn) Properties(ctx context.Context, id backends.ObjectID) (backends.Object, error) {
	if c.closed {
		return backends.Object{}, backends.ErrClosed
	}
	obj, ok := c.dev.objects[id]
	if !ok {
		return backends.Object{}, backends.ErrNotFound
	}
	c.dev.PropertyCalls[id]++
	return backends.Object{
		ID:           id,
		Name:         obj.name,
		NameValid:    !c.dev.InvalidName[id],
		Class:        obj.class,
		Size:         obj.size,
		Modified:     obj.modified,
		Capacity:     obj.capacity,
		FreeCapacity: obj.free,
		Serial:       obj.serial,
	}, nil
}

func (c *conn) Children(ctx context.Context, id backends.ObjectID) (backends.Enumerator, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	obj, ok := c.dev.objects[id]
	if !ok {
		return nil, backends.ErrNotFound
	}
	if err := c.dev.ChildrenErr[id]; err != nil {
		return nil, err
	}
	ids := make([]backends.ObjectID, len(obj.children))
	copy(ids, obj.children)
	failAfter := -1
	if n, ok := c.dev.PageErrAfter[id]; ok {
		failAfter = n
	}
	return &enumerator{ids: ids, pageSize: c.dev.PageSize, failAfter: failAfter}, nil
}

func (c *conn) CreateFolder(ctx context.Context, parent backends.ObjectID, name string) error {
	if c.closed {
		return backends.ErrClosed
	}
	if _, ok := c.dev.objects[parent]; !ok {
		return backends.ErrNotFound
	}
	c.dev.AddFolder(parent, name)
	return nil
}

func (c *conn) CreateFile(ctx context.Context, parent backends.ObjectID, name string, size int64) (backends.WriteStream, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	if _, ok := c.dev.objects[parent]; !ok {
		return nil, backends.ErrNotFound
	}
	id := c.dev.AddFile(parent, name, nil, time.Now())
	return &writeStream{dev: c.dev, id: id, blockSize: c.dev.BlockSize}, nil
}

func (c *conn) OpenRead(ctx context.Context, id backends.ObjectID) (backends.ReadStream, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	obj, ok := c.dev.objects[id]
	if !ok {
		return nil, backends.ErrNotFound
	}
	if obj.class != backends.ClassFile {
		return nil, fmt.Errorf("object %s is not a file", id)
	}
	return &readStream{Reader: bytes.NewReader(obj.data), blockSize: c.dev.BlockSize}, nil
}

func (c *conn) Delete(ctx context.Context, id backends.ObjectID, recursive bool) error {
	if c.closed {
		return backends.ErrClosed
	}
	obj, ok := c.dev.objects[id]
	if !ok {
		return backends.ErrNotFound
	}
	if len(obj.children) > 0 && !recursive {
		return fmt.Errorf("object %s has children", id)
	}
	c.remove(obj)
	parent := c.dev.objects[obj.parent]
	if parent != nil {
		kept := parent.children[:0]
		for _, cid := range parent.children {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		parent.children = kept
	}
	return nil
}

func (c *conn) remove(obj *object) {
	for _, cid := range obj.children {
		if child, ok := c.dev.objects[cid]; ok {
			c.remove(child)
		}
	}
	delete(c.dev.objects, obj.id)
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}

type enumerator struct {
	ids       []backends.ObjectID
	pageSize  int
	off       int
	pages     int
	failAfter int
	released  bool
}

func (e *enumerator) Next(ctx context.Context) ([]backends.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.failAfter >= 0 && e.pages >= e.failAfter {
		return nil, fmt.Errorf("enumeration failed after %d pages", e.pages)
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
	e.pages++
	return page, nil
}

func (e *enumerator) Release() { e.released = true }

type readStream struct {
	*bytes.Reader
	blockSize int
}

func (r *readStream) BlockSize() int { return r.blockSize }
func (r *readStream) Close() error   { return nil }

type writeStream struct {
	dev       *Dev
	id        backends.ObjectID
	blockSize int
	buf       bytes.Buffer
	committed bool
}

func (w *writeStream) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *writeStream) BlockSize() int { return w.blockSize }

// Commit makes the written bytes the object's content. An uncommitted
// stream leaves the object behind with whatever was flushed, mirroring
// the partial-object behavior of the remote protocol.
func (w *writeStream) Commit() error {
	obj, ok := w.dev.objects[w.id]
	if !ok {
		return backends.ErrNotFound
	}
	obj.data = w.buf.Bytes()
	obj.size = int64(len(obj.data))
	obj.modified = time.Now()
	w.committed = true
	return nil
}

func (w *writeStream) Close() error {
	if !w.committed {
		if obj, ok := w.dev.objects[w.id]; ok {
			obj.data = w.buf.Bytes()
			obj.size = int64(len(obj.data))
		}
	}
	return nil
}
