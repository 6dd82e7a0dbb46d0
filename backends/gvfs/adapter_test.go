package gvfs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/portable"
)

const mountName = "mtp:host=Nokia_Nokia_6_PLEGAR1234567890"

// fakeMount builds a gvfs-style tree under a fresh root and returns the
// root path.
func fakeMount(t *testing.T, storages ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, s := range storages {
		if err := os.MkdirAll(filepath.Join(root, mountName, s), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
	}
	return root
}

func TestParseMountName(t *testing.T) {
	tests := []struct {
		name       string
		dirname    string
		wantName   string
		wantSerial string
	}{
		{
			name:       "standard mtp mount",
			dirname:    "mtp:host=Nokia_Nokia_6_PLEGAR1234567890",
			wantName:   "Nokia_Nokia_6_PLEGAR1234567890",
			wantSerial: "PLEGAR1234567890",
		},
		{
			name:       "no key value shape",
			dirname:    "somedisk",
			wantName:   "Unknown",
			wantSerial: "",
		},
		{
			name:       "no underscores after host",
			dirname:    "mtp:host=device",
			wantName:   "Unknown",
			wantSerial: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, serial := parseMountName(tt.dirname)
			if name != tt.wantName || serial != tt.wantSerial {
				t.Errorf("parseMountName(%q) = (%q, %q), want (%q, %q)",
					tt.dirname, name, serial, tt.wantName, tt.wantSerial)
			}
		})
	}
}

func TestEnumerateSkipsUnreadyMounts(t *testing.T) {
	root := fakeMount(t, "Internal storage")
	// A second mount directory that is still empty is not ready.
	if err := os.Mkdir(filepath.Join(root, "mtp:host=Other_Phone_SER2"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	ids, err := NewRegistry(root).Enumerate(context.Background())
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(ids) != 1 || ids[0] != mountName {
		t.Fatalf("Enumerate = %v, want [%s]", ids, mountName)
	}
}

func TestEnumerateMissingRoot(t *testing.T) {
	reg := NewRegistry(filepath.Join(t.TempDir(), "no-such-dir"))
	if _, err := reg.Enumerate(context.Background()); err == nil {
		t.Fatalf("Enumerate succeeded on missing root")
	}
}

func TestDescribe(t *testing.T) {
	root := fakeMount(t, "Internal storage")
	desc, err := NewRegistry(root).Describe(context.Background(), mountName)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if desc.Name != "Nokia_Nokia_6_PLEGAR1234567890" {
		t.Errorf("Name = %q", desc.Name)
	}
	if desc.Serial != "PLEGAR1234567890" {
		t.Errorf("Serial = %q", desc.Serial)
	}
}

func TestPropertiesClassification(t *testing.T) {
	root := fakeMount(t, "Internal storage", "SD card")
	mount := filepath.Join(root, mountName)
	if err := os.MkdirAll(filepath.Join(mount, "Internal storage", "DCIM"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(mount, "Internal storage", "DCIM", "pic.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	conn, err := NewRegistry(root).Open(context.Background(), mountName)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()
	ctx := context.Background()

	roots, err := conn.Roots(ctx)
	if err != nil {
		t.Fatalf("Roots: %v", err)
	}
	if len(roots) != 2 || roots[0].Name != "Internal storage" || roots[1].Name != "SD card" {
		t.Fatalf("Roots = %+v, want sorted storages", roots)
	}

	tests := []struct {
		name      string
		id        backends.ObjectID
		wantClass backends.Class
	}{
		{"mount root", conn.Root().ID, backends.ClassDevice},
		{"storage", roots[0].ID, backends.ClassStorage},
		{"folder", backends.ObjectID(filepath.Join(mount, "Internal storage", "DCIM")), backends.ClassFolder},
		{"file", backends.ObjectID(filepath.Join(mount, "Internal storage", "DCIM", "pic.jpg")), backends.ClassFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := conn.Properties(ctx, tt.id)
			if err != nil {
				t.Fatalf("Properties: %v", err)
			}
			if obj.Class != tt.wantClass {
				t.Errorf("class = %v, want %v", obj.Class, tt.wantClass)
			}
		})
	}

	obj, err := conn.Properties(ctx, tests[3].id)
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	if obj.Size != 4 {
		t.Errorf("file size = %d, want 4", obj.Size)
	}

	if _, err := conn.Properties(ctx, backends.ObjectID(filepath.Join(mount, "absent"))); err != backends.ErrNotFound {
		t.Errorf("missing object error = %v, want ErrNotFound", err)
	}
}

// The mounted-filesystem backend behind the full content model.
func TestPortableOverMount(t *testing.T) {
	root := fakeMount(t, "Internal storage")
	mgr := portable.NewManager(NewRegistry(root), nil)
	ctx := context.Background()

	devs, err := mgr.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devs) != 1 {
		t.Fatalf("got %d devices, want 1", len(devs))
	}
	dev := devs[0]
	deviceName, _ := dev.GetDescription(ctx)

	dir, err := dev.MakeDirs(ctx, deviceName+"/Internal storage/Music/Rock")
	if err != nil {
		t.Fatalf("MakeDirs: %v", err)
	}
	data := []byte("guitar riff")
	if err := dir.UploadStream(ctx, "riff.mp3", int64(len(data)), bytes.NewReader(data)); err != nil {
		t.Fatalf("UploadStream: %v", err)
	}

	file, err := dev.ContentFromDevicePath(ctx, deviceName+"/Internal storage/Music/Rock/riff.mp3")
	if err != nil {
		t.Fatalf("ContentFromDevicePath: %v", err)
	}
	if file == nil {
		t.Fatalf("uploaded file not resolvable")
	}
	var out bytes.Buffer
	if err := file.DownloadStream(ctx, &out); err != nil {
		t.Fatalf("DownloadStream: %v", err)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("round trip = %q, want %q", out.Bytes(), data)
	}

	if err := dir.Remove(ctx); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, mountName, "Internal storage", "Music", "Rock")); !os.IsNotExist(err) {
		t.Errorf("directory still on disk after Remove")
	}
}
