package portable

import (
	"context"
	"errors"
	"testing"

	"github.com/portablefs/portablefs/backends/memdev"
)

func TestDevicesEnumeration(t *testing.T) {
	reg := memdev.New()
	reg.Add("Nokia 6", "SER1")
	reg.Add("PixelCam", "SER2")
	mgr := NewManager(reg, nil)

	devs, err := mgr.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devs) != 2 {
		t.Fatalf("got %d devices, want 2", len(devs))
	}
	if devs[0].ID() != "Nokia 6" || devs[1].ID() != "PixelCam" {
		t.Errorf("device order = %q, %q", devs[0].ID(), devs[1].ID())
	}
}

func TestDevicesRegistryError(t *testing.T) {
	reg := memdev.New()
	reg.EnumerateErr = errors.New("device manager unavailable")
	mgr := NewManager(reg, nil)

	_, err := mgr.Devices(context.Background())
	var accessErr *DeviceAccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("Devices error = %v, want DeviceAccessError", err)
	}
	if accessErr.Op != "enumerate" {
		t.Errorf("Op = %q, want %q", accessErr.Op, "enumerate")
	}
}

func TestGetDescription(t *testing.T) {
	_, dev := testDevice(t)
	name, desc := dev.GetDescription(context.Background())
	if name != "Nokia 6" || desc != "Nokia 6" {
		t.Errorf("description = (%q, %q), want (Nokia 6, Nokia 6)", name, desc)
	}
}

func TestGetDescriptionFallsBackWithoutFriendlyName(t *testing.T) {
	md, dev := testDevice(t)
	md.NoFriendlyName = true
	name, _ := dev.GetDescription(context.Background())
	if name == "" {
		t.Errorf("name is empty, want fallback to device properties")
	}
}

func TestGetDescriptionNeverFails(t *testing.T) {
	md, dev := testDevice(t)
	md.DescribeErr = errors.New("property bag unreadable")
	name, desc := dev.GetDescription(context.Background())
	if name != "" || desc != "" {
		t.Errorf("description = (%q, %q), want empty pair", name, desc)
	}
	// Memoized: the second call must not retry the backend.
	md.DescribeErr = nil
	name, desc = dev.GetDescription(context.Background())
	if name != "" || desc != "" {
		t.Errorf("second call = (%q, %q), want memoized empty pair", name, desc)
	}
}

func TestGetContentDeviceRoot(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Internal Storage", 1000, 500)
	ctx := context.Background()

	roots, err := dev.GetContent(ctx)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("got %d roots, want 1", len(roots))
	}
	if roots[0].FullName() != "Nokia 6" {
		t.Errorf("root full name = %q, want %q", roots[0].FullName(), "Nokia 6")
	}
}

func TestDeviceCloseReopens(t *testing.T) {
	md, dev := testDevice(t)
	md.AddStorage("Card", -1, -1)
	ctx := context.Background()

	if _, err := dev.GetContent(ctx); err != nil {
		t.Fatalf("first GetContent: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := dev.GetContent(ctx); err != nil {
		t.Fatalf("GetContent after Close: %v", err)
	}
	if md.Opens != 2 {
		t.Errorf("device opened %d times, want 2", md.Opens)
	}
}
