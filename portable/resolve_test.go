package portable

import (
	"context"
	"testing"
	"time"
)

func TestContentFromDevicePath(t *testing.T) {
	md, dev := testDevice(t)
	st := md.AddStorage("Card", -1, -1)
	dir := md.AddFolder(st, "DCIM")
	md.AddFile(dir, "pic.jpg", []byte("jpeg"), time.Now())
	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		wantPath string
		wantNil  bool
	}{
		{
			name:     "file",
			path:     "Nokia 6/Card/DCIM/pic.jpg",
			wantPath: "Nokia 6/Card/DCIM/pic.jpg",
		},
		{
			name:     "directory",
			path:     "Nokia 6/Card/DCIM",
			wantPath: "Nokia 6/Card/DCIM",
		},
		{
			name:     "device root only",
			path:     "Nokia 6",
			wantPath: "Nokia 6",
		},
		{
			name:     "windows separators",
			path:     "Nokia 6\\Card\\DCIM",
			wantPath: "Nokia 6/Card/DCIM",
		},
		{
			name:    "missing leaf",
			path:    "Nokia 6/Card/DCIM/absent.jpg",
			wantNil: true,
		},
		{
			name:    "wrong device",
			path:    "OtherPhone/Card",
			wantNil: true,
		},
		{
			name:    "empty path",
			path:    "",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := dev.ContentFromDevicePath(ctx, tt.path)
			if err != nil {
				t.Fatalf("ContentFromDevicePath(%q): %v", tt.path, err)
			}
			if tt.wantNil {
				if c != nil {
					t.Fatalf("resolved %q to %q, want nil", tt.path, c.FullName())
				}
				return
			}
			if c == nil {
				t.Fatalf("ContentFromDevicePath(%q) = nil", tt.path)
			}
			if c.FullName() != tt.wantPath {
				t.Errorf("full name = %q, want %q", c.FullName(), tt.wantPath)
			}
		})
	}
}
