//go:build windows

// Package wpd implements the backend over the Windows Portable Device
// COM API. Devices are addressed by PnP ID, objects by the wire IDs the
// device assigns, and the content tree starts at the synthetic "DEVICE"
// object whose children are the storages. All property reads go through
// one batched GetValues round-trip per object.
package wpd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-ole/go-ole"

	"github.com/portablefs/portablefs/backends"
)

// The COM apartment and the device-manager singleton are process-wide
// and reclaimed only at process exit.
var (
	comOnce sync.Once
	comErr  error

	keysOnce  sync.Once
	batchKeys *iPortableDeviceKeyCollection
	keysErr   error
)

func initCOM() error {
	comOnce.Do(func() {
		err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
		if err != nil {
			var oleErr *ole.OleError
			// S_FALSE: the apartment already exists.
			if errors.As(err, &oleErr) && oleErr.Code() == 1 {
				err = nil
			}
		}
		comErr = err
	})
	return comErr
}

// propertyBatchKeys returns the shared key collection naming every
// property the backend reads, so one GetValues round-trip covers all of
// them.
func propertyBatchKeys() (*iPortableDeviceKeyCollection, error) {
	keysOnce.Do(func() {
		batchKeys, keysErr = newKeyCollection(
			keyObjectName,
			keyObjectContentType,
			keyObjectSize,
			keyObjectDateModified,
			keyStorageCapacity,
			keyStorageFree,
			keyStorageSerial,
			keyDeviceSerial,
		)
	})
	return batchKeys, keysErr
}

// Registry implements backends.Registry over the Windows Portable
// Device COM API.
type Registry struct {
	once sync.Once
	mgr  *iPortableDeviceManager
	err  error
}

// NewRegistry creates the registry. The underlying device-manager
// session is established lazily on first use.
func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) manager() (*iPortableDeviceManager, error) {
	r.once.Do(func() {
		if err := initCOM(); err != nil {
			r.err = fmt.Errorf("failed to initialize COM: %w", err)
			return
		}
		p, err := createInstance(clsidPortableDeviceManager, iidPortableDeviceManager)
		if err != nil {
			r.err = fmt.Errorf("failed to create device manager: %w", err)
			return
		}
		r.mgr = (*iPortableDeviceManager)(p)
	})
	return r.mgr, r.err
}

// Enumerate implements backends.Registry.
func (r *Registry) Enumerate(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mgr, err := r.manager()
	if err != nil {
		return nil, err
	}
	ids, err := mgr.DeviceIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return ids, nil
}

// Describe implements backends.Registry. A device without a friendly
// name comes back with an empty Name; the caller falls back to the
// opened device's own properties.
func (r *Registry) Describe(ctx context.Context, id string) (backends.DeviceDesc, error) {
	if err := ctx.Err(); err != nil {
		return backends.DeviceDesc{}, err
	}
	mgr, err := r.manager()
	if err != nil {
		return backends.DeviceDesc{}, err
	}
	desc := backends.DeviceDesc{}
	if name, err := mgr.FriendlyName(id); err == nil {
		desc.Name = name
	}
	description, err := mgr.Description(id)
	if err != nil {
		return backends.DeviceDesc{}, fmt.Errorf("failed to describe device %s: %w", id, err)
	}
	desc.Description = description
	return desc, nil
}

// Open implements backends.Registry.
func (r *Registry) Open(ctx context.Context, id string) (backends.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mgr, err := r.manager()
	if err != nil {
		return nil, err
	}

	clientInfo, err := newPortableDeviceValues()
	if err != nil {
		return nil, fmt.Errorf("failed to create client info: %w", err)
	}
	defer clientInfo.Release()
	clientInfo.SetString(keyClientName, "portablefs")
	clientInfo.SetUint32(keyClientMajorVersion, 1)
	clientInfo.SetUint32(keyClientMinorVersion, 0)
	clientInfo.SetUint32(keyClientRevision, 0)

	p, err := createInstance(clsidPortableDeviceFTM, iidPortableDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to create device instance: %w", err)
	}
	dev := (*iPortableDevice)(p)
	if err := dev.Open(id, clientInfo); err != nil {
		dev.Release()
		return nil, fmt.Errorf("failed to open device %s: %w", id, err)
	}
	content, err := dev.Content()
	if err != nil {
		dev.Release()
		return nil, fmt.Errorf("failed to get device content: %w", err)
	}
	props, err := content.Properties()
	if err != nil {
		content.Release()
		dev.Release()
		return nil, fmt.Errorf("failed to get device properties: %w", err)
	}

	name := id
	if friendly, err := mgr.FriendlyName(id); err == nil && friendly != "" {
		name = friendly
	}
	return &conn{dev: dev, content: content, props: props, name: name}, nil
}

type conn struct {
	dev     *iPortableDevice
	content *iPortableDeviceContent
	props   *iPortableDeviceProperties
	name    string
	closed  bool
}

func (c *conn) Root() backends.Root {
	return backends.Root{ID: deviceObjectID, Name: c.name, Device: true}
}

// Roots returns the synthetic device root. Real storages are its
// children and are reached by enumerating it one level.
func (c *conn) Roots(ctx context.Context) ([]backends.Root, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	return []backends.Root{c.Root()}, nil
}

// Properties performs one batched fetch of every property the content
// model reads. Properties that do not apply to the object's class are
// simply absent from the returned bag.
func (c *conn) Properties(ctx context.Context, id backends.ObjectID) (backends.Object, error) {
	if c.closed {
		return backends.Object{}, backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return backends.Object{}, err
	}
	keys, err := propertyBatchKeys()
	if err != nil {
		return backends.Object{}, err
	}
	values, err := c.props.GetValues(string(id), keys)
	if err != nil {
		return backends.Object{}, fmt.Errorf("failed to get properties of %s: %w", id, err)
	}
	defer values.Release()

	obj := backends.Object{
		ID:           id,
		Size:         -1,
		Capacity:     -1,
		FreeCapacity: -1,
	}
	if name, err := values.GetString(keyObjectName); err == nil {
		obj.Name = name
		obj.NameValid = true
	}
	if g, err := values.GetGUID(keyObjectContentType); err == nil {
		switch {
		case ole.IsEqualGUID(&g, contentTypeStorage), ole.IsEqualGUID(&g, contentTypeFunctionalObject):
			obj.Class = backends.ClassStorage
		case ole.IsEqualGUID(&g, contentTypeFolder):
			obj.Class = backends.ClassFolder
		default:
			obj.Class = backends.ClassFile
		}
	}
	switch obj.Class {
	case backends.ClassStorage:
		if n, err := values.GetUint64(keyStorageCapacity); err == nil {
			obj.Capacity = int64(n)
		}
		if n, err := values.GetUint64(keyStorageFree); err == nil {
			obj.FreeCapacity = int64(n)
		}
		if s, err := values.GetString(keyStorageSerial); err == nil {
			obj.Serial = s
		} else if s, err := values.GetString(keyDeviceSerial); err == nil {
			obj.Serial = s
		}
	case backends.ClassFile:
		if n, err := values.GetUint64(keyObjectSize); err == nil {
			obj.Size = int64(n)
		}
		if t, err := values.GetTime(keyObjectDateModified); err == nil {
			obj.Modified = t
		}
	}
	return obj, nil
}

func (c *conn) Children(ctx context.Context, id backends.ObjectID) (backends.Enumerator, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enum, err := c.content.EnumObjects(string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate children of %s: %w", id, err)
	}
	return &enumerator{enum: enum}, nil
}

func (c *conn) CreateFolder(ctx context.Context, parent backends.ObjectID, name string) error {
	if c.closed {
		return backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	values, err := newPortableDeviceValues()
	if err != nil {
		return err
	}
	defer values.Release()
	values.SetString(keyObjectParentID, string(parent))
	values.SetString(keyObjectName, name)
	values.SetString(keyObjectOriginalName, name)
	values.SetGUID(keyObjectContentType, contentTypeFolder)
	if _, err := c.content.CreateObjectWithPropertiesOnly(values); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	return nil
}

func (c *conn) CreateFile(ctx context.Context, parent backends.ObjectID, name string, size int64) (backends.WriteStream, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err := newPortableDeviceValues()
	if err != nil {
		return nil, err
	}
	defer values.Release()
	values.SetString(keyObjectParentID, string(parent))
	values.SetString(keyObjectName, name)
	values.SetString(keyObjectOriginalName, name)
	values.SetUint64(keyObjectSize, uint64(size))
	stream, optimal, err := c.content.CreateObjectWithPropertiesAndData(values)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", name, err)
	}
	return &writeStream{s: stream, block: blockOrDefault(optimal)}, nil
}

func (c *conn) OpenRead(ctx context.Context, id backends.ObjectID) (backends.ReadStream, error) {
	if c.closed {
		return nil, backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resources, err := c.content.Transfer()
	if err != nil {
		return nil, fmt.Errorf("failed to get resource facility: %w", err)
	}
	defer resources.Release()
	stream, optimal, err := resources.GetStream(string(id), keyResourceDefault, stgmRead)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream for %s: %w", id, err)
	}
	return &readStream{s: stream, block: blockOrDefault(optimal)}, nil
}

func (c *conn) Delete(ctx context.Context, id backends.ObjectID, recursive bool) error {
	if c.closed {
		return backends.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ids, err := newObjectIDCollection(string(id))
	if err != nil {
		return err
	}
	defer ids.Release()
	if err := c.content.Delete(recursive, ids); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.props.Release()
	c.content.Release()
	err := c.dev.Close()
	c.dev.Release()
	return err
}

type enumerator struct {
	enum     *iEnumObjectIDs
	released bool
}

func (e *enumerator) Next(ctx context.Context) ([]backends.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.released {
		return nil, backends.ErrClosed
	}
	ids, err := e.enum.Next(enumPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enumeration page: %w", err)
	}
	page := make([]backends.ObjectID, 0, len(ids))
	for _, id := range ids {
		page = append(page, backends.ObjectID(id))
	}
	return page, nil
}

func (e *enumerator) Release() {
	if !e.released {
		e.enum.Release()
		e.released = true
	}
}
