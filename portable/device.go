package portable

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/internal/devpath"
)

// Device is one attached portable device. Instances are created by
// Manager.Devices; the device connection is opened lazily on first
// content access and reused for the Device's lifetime.
type Device struct {
	mgr *Manager
	id  string

	name      string
	desc      string
	described bool

	conn backends.Conn
}

// ID returns the platform-specific device identifier.
func (d *Device) ID() string { return d.id }

func (d *Device) open(ctx context.Context) (backends.Conn, error) {
	if d.conn != nil {
		return d.conn, nil
	}
	conn, err := d.mgr.open(ctx, d.id)
	if err != nil {
		return nil, err
	}
	d.conn = conn
	return conn, nil
}

// GetDescription resolves the device's display name and description. The
// friendly name falls back to the generic description, which falls back
// to the opened device's own name property; if everything fails both
// values degrade to the best string available, down to "". It never
// fails, and the result is memoized.
func (d *Device) GetDescription(ctx context.Context) (name, description string) {
	if d.described {
		return d.name, d.desc
	}
	desc, err := d.mgr.registry.Describe(ctx, d.id)
	if err != nil {
		d.mgr.logger.Warn("device description lookup failed",
			zap.String("device", d.id), zap.Error(err))
		d.described = true
		return "", ""
	}
	d.name = desc.Name
	d.desc = desc.Description
	if d.name == "" {
		// No friendly name; ask the opened device itself, then settle
		// for the description.
		d.name = d.desc
		if conn, cerr := d.open(ctx); cerr == nil {
			if obj, perr := conn.Properties(ctx, conn.Root().ID); perr == nil && obj.NameValid && obj.Name != "" {
				d.name = obj.Name
			}
		}
	}
	d.described = true
	return d.name, d.desc
}

// GetContent returns the device's top-level content: on the remote
// backend one synthetic device-root Content that must itself be
// enumerated one level to reach real storages, on the mounted-filesystem
// backend one Content per storage, sorted by name. It fails with a
// DeviceAccessError when the device cannot be opened or listed.
func (d *Device) GetContent(ctx context.Context) ([]*Content, error) {
	conn, err := d.open(ctx)
	if err != nil {
		return nil, deviceErr("open", d.id, err)
	}
	roots, err := conn.Roots(ctx)
	if err != nil {
		return nil, deviceErr("list content", d.id, err)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	deviceName, _ := d.GetDescription(ctx)
	contents := make([]*Content, 0, len(roots))
	for _, root := range roots {
		c := newContent(d, root.ID, "")
		if root.Device {
			c.fullPath = deviceName
		} else {
			c.typ = ContentTypeStorage
			c.fullPath = devpath.Join(deviceName, root.Name)
		}
		contents = append(contents, c)
	}
	return contents, nil
}

// rootContent returns the Content from which logical path resolution
// starts: the device-root object named after the device.
func (d *Device) rootContent(ctx context.Context) (*Content, error) {
	conn, err := d.open(ctx)
	if err != nil {
		return nil, deviceErr("open", d.id, err)
	}
	deviceName, _ := d.GetDescription(ctx)
	c := newContent(d, conn.Root().ID, "")
	c.typ = ContentTypeDevice
	c.fullPath = deviceName
	return c, nil
}

// Close releases the device connection, if one was opened. Further
// content access reopens it.
func (d *Device) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
