package portable

import (
	"context"

	"github.com/portablefs/portablefs/internal/devpath"
)

// ContentFromDevicePath resolves a full logical path against this
// device. The first path segment must equal the device name; the
// remaining segments are resolved one child at a time from the device
// root. It returns (nil, nil) when the first segment names a different
// device or any segment is missing.
func (d *Device) ContentFromDevicePath(ctx context.Context, path string) (*Content, error) {
	first, rest := devpath.Cut(devpath.Normalize(path))
	name, _ := d.GetDescription(ctx)
	if first == "" || first != name {
		return nil, nil
	}
	root, err := d.rootContent(ctx)
	if err != nil {
		return nil, err
	}
	return root.GetPath(ctx, rest)
}
