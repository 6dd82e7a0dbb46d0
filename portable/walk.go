package portable

import (
	"context"
	"sort"

	"github.com/portablefs/portablefs/metrics"
)

// WalkEntry is one visited directory together with its immediate
// children, split by kind and sorted by full path.
type WalkEntry struct {
	Dir         *Content
	Directories []*Content
	Files       []*Content
}

// WalkOptions control a tree walk.
//
// Progress, if set, is called for every child discovered while a
// directory is being listed, which on a slow device link is the only
// timely place to report progress. Returning false abandons the entire
// walk immediately.
//
// OnError, if set, is consulted when listing a directory fails partway.
// Returning true drops that directory's entry but keeps walking,
// including into the subdirectories discovered before the failure.
// Returning false, or leaving OnError unset, aborts the walk with the
// error.
type WalkOptions struct {
	Progress func(path string) bool
	OnError  func(dir *Content, err error) bool
}

// Walk traverses the tree under this node breadth first, calling visit
// with one entry per directory-like node (storages included). A false
// return from visit ends the walk early. Listing order within a level
// follows the sorted full paths.
func (c *Content) Walk(ctx context.Context, visit func(WalkEntry) bool, opts WalkOptions) error {
	queue := []*Content{c}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		var dirs, files []*Content
		it := dir.Children(ctx)
		for it.Next() {
			child := it.Content()
			switch child.typ {
			case ContentTypeDirectory, ContentTypeStorage, ContentTypeDevice:
				dirs = append(dirs, child)
			case ContentTypeFile:
				files = append(files, child)
			}
			if opts.Progress != nil && !opts.Progress(child.FullName()) {
				it.Release()
				metrics.WalkAbortsTotal.WithLabelValues("progress").Inc()
				return nil
			}
		}
		it.Release()
		sort.Slice(dirs, func(i, j int) bool { return dirs[i].FullName() < dirs[j].FullName() })
		sort.Slice(files, func(i, j int) bool { return files[i].FullName() < files[j].FullName() })
		metrics.WalkDirectoriesTotal.Inc()

		if err := it.Err(); err != nil {
			if opts.OnError == nil || !opts.OnError(dir, err) {
				metrics.WalkAbortsTotal.WithLabelValues("error").Inc()
				return err
			}
			// Children discovered before the failure still get walked;
			// only the failed directory's own entry is dropped.
			queue = append(queue, dirs...)
			continue
		}

		if visit != nil && !visit(WalkEntry{Dir: dir, Directories: dirs, Files: files}) {
			return nil
		}
		queue = append(queue, dirs...)
	}
	return nil
}
