package portable

import (
	"context"
	"fmt"

	"github.com/portablefs/portablefs/internal/devpath"
)

// MakeDirs ensures every directory along the given logical path exists
// and returns the final one. The first segment must equal the device
// name; existing segments are reused, missing ones are created in
// order. Each created directory is looked up again on the device before
// descending, so the returned chain always reflects device-assigned
// identities. Creating directly under the device root fails on devices
// whose top level holds only storages.
func (d *Device) MakeDirs(ctx context.Context, path string) (*Content, error) {
	first, rest := devpath.Cut(devpath.Normalize(path))
	name, _ := d.GetDescription(ctx)
	if first == "" || first != name {
		return nil, contentErr("makedirs", path, fmt.Errorf("path is not rooted at device %q", name))
	}
	cur, err := d.rootContent(ctx)
	if err != nil {
		return nil, err
	}
	for _, seg := range devpath.Segments(rest) {
		child, err := cur.GetChild(ctx, seg)
		if err != nil {
			return nil, err
		}
		if child == nil {
			child, err = cur.CreateContent(ctx, seg)
			if err != nil {
				return nil, err
			}
		}
		cur = child
	}
	return cur, nil
}
