// Package gvfs implements the backend over the gvfs MTP mounts that the
// gnome desktop exposes under /run/user/<uid>/gvfs. The device tree is a
// real mounted filesystem, so object IDs are absolute paths and the
// adapter is a thin pass-through over directory syscalls.
//
// Device identity is parsed from the mount directory name, which follows
// the convention "mtp:host=<vendor>_<model>_<serial>". This is a known
// single-desktop-environment limitation: in practice at most one device
// per process is usable, and nothing more robust than the name is
// available without talking to the device daemon directly.
package gvfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/portablefs/portablefs/backends"
)

const blockSize = 128 * 1024

// Registry implements backends.Registry over a gvfs mount root.
type Registry struct {
	root string
}

// NewRegistry creates a registry over the given mount root. An empty root
// selects the current user's gvfs directory.
func NewRegistry(root string) *Registry {
	if root == "" {
		root = fmt.Sprintf("/run/user/%d/gvfs", os.Getuid())
	}
	return &Registry{root: root}
}

// Enumerate lists mounted devices. Mounts whose directory cannot be
// listed or is empty are not ready and are skipped.
func (r *Registry) Enumerate(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("device search path %s not found: %w", r.root, err)
	}
	var ids []string
	for _, entry := range entries {
		children, err := os.ReadDir(filepath.Join(r.root, entry.Name()))
		if err != nil || len(children) == 0 {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

// Describe parses the device name, description and serial number from the
// mount directory name.
func (r *Registry) Describe(ctx context.Context, id string) (backends.DeviceDesc, error) {
	name, serial := parseMountName(id)
	return backends.DeviceDesc{Name: name, Description: name, Serial: serial}, nil
}

// parseMountName extracts the device name and serial from a mount
// directory name like "mtp:host=Nokia_Nokia_6_PLEGAR1234567890". Names
// that do not follow the convention come back as "Unknown".
func parseMountName(dirname string) (name, serial string) {
	name = "Unknown"
	if _, devicename, ok := strings.Cut(dirname, "="); ok {
		if strings.Contains(devicename, "_") {
			name = devicename
			parts := strings.Split(devicename, "_")
			serial = parts[len(parts)-1]
		}
	}
	return name, serial
}

// Open implements backends.Registry.
func (r *Registry) Open(ctx context.Context, id string) (backends.Conn, error) {
	path := filepath.Join(r.root, id)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	name, serial := parseMountName(id)
	return &conn{path: path, name: name, serial: serial}, nil
}

type conn struct {
	path   string
	name   string
	serial string
}

func (c *conn) Root() backends.Root {
	return backends.Root{ID: backends.ObjectID(c.path), Name: c.name, Device: true}
}

// Roots returns one entry per directory under the mount point, sorted by
// name. Each is a storage.
func (c *conn) Roots(ctx context.Context) ([]backends.Root, error) {
	entries, err := os.ReadDir(c.path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", c.path, err)
	}
	roots := make([]backends.Root, 0, len(entries))
	for _, entry := range entries {
		roots = append(roots, backends.Root{
			ID:   backends.ObjectID(filepath.Join(c.path, entry.Name())),
			Name: entry.Name(),
		})
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	return roots, nil
}

func (c *conn) Properties(ctx context.Context, id backends.ObjectID) (backends.Object, error) {
	path := string(id)
	obj := backends.Object{
		ID:           id,
		NameValid:    true,
		Size:         -1,
		Capacity:     -1,
		FreeCapacity: -1,
	}
	if path == c.path {
		obj.Name = c.name
		obj.Class = backends.ClassDevice
		obj.Serial = c.serial
		return obj, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return backends.Object{}, backends.ErrNotFound
		}
		return backends.Object{}, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	obj.Name = filepath.Base(path)
	switch {
	case info.IsDir() && filepath.Dir(path) == c.path:
		// Top-level directories are the device's storages.
		obj.Class = backends.ClassStorage
		obj.Serial = c.serial
	case info.IsDir():
		obj.Class = backends.ClassFolder
	default:
		obj.Class = backends.ClassFile
		obj.Size = info.Size()
		obj.Modified = info.ModTime()
	}
	return obj, nil
}

func (c *conn) Children(ctx context.Context, id backends.ObjectID) (backends.Enumerator, error) {
	entries, err := os.ReadDir(string(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backends.ErrNotFound
		}
		return nil, fmt.Errorf("cannot read directory %s: %w", id, err)
	}
	ids := make([]backends.ObjectID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, backends.ObjectID(filepath.Join(string(id), entry.Name())))
	}
	return backends.SliceEnumerator(ids, 0), nil
}

func (c *conn) CreateFolder(ctx context.Context, parent backends.ObjectID, name string) error {
	path := filepath.Join(string(parent), name)
	if err := os.Mkdir(path, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", path, err)
	}
	return nil
}

func (c *conn) CreateFile(ctx context.Context, parent backends.ObjectID, name string, size int64) (backends.WriteStream, error) {
	path := filepath.Join(string(parent), name)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cannot create file %s: %w", path, err)
	}
	return &writeStream{f: f}, nil
}

func (c *conn) OpenRead(ctx context.Context, id backends.ObjectID) (backends.ReadStream, error) {
	f, err := os.Open(string(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backends.ErrNotFound
		}
		return nil, fmt.Errorf("cannot open %s: %w", id, err)
	}
	return &readStream{f: f}, nil
}

func (c *conn) Delete(ctx context.Context, id backends.ObjectID, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(string(id))
	} else {
		err = os.Remove(string(id))
	}
	if err != nil {
		return fmt.Errorf("cannot delete %s: %w", id, err)
	}
	return nil
}

func (c *conn) Close() error { return nil }

type readStream struct {
	f *os.File
}

func (r *readStream) Read(p []byte) (int, error) { return r.f.Read(p) }
func (r *readStream) BlockSize() int             { return blockSize }
func (r *readStream) Close() error               { return r.f.Close() }

type writeStream struct {
	f *os.File
}

func (w *writeStream) Write(p []byte) (int, error) { return w.f.Write(p) }
func (w *writeStream) BlockSize() int              { return blockSize }

// Commit flushes to stable storage; the mount daemon handles the actual
// device transfer on close.
func (w *writeStream) Commit() error { return w.f.Sync() }
func (w *writeStream) Close() error  { return w.f.Close() }
