package portable

import (
	"context"

	"github.com/portablefs/portablefs/backends"
	"github.com/portablefs/portablefs/internal/devpath"
	"github.com/portablefs/portablefs/metrics"
)

// ChildIter walks the immediate children of one Content. The backend's
// enumeration pages are an implementation detail; the iterator exposes
// one resolved child at a time:
//
//	it := dir.Children(ctx)
//	defer it.Release()
//	for it.Next() {
//	    use(it.Content())
//	}
//	if err := it.Err(); err != nil { ... }
//
// Each child's properties are resolved as it is yielded, so every
// Content returned already carries its name and type.
type ChildIter struct {
	ctx    context.Context
	parent *Content

	enum backends.Enumerator
	page []backends.ObjectID
	off  int

	cur  *Content
	err  error
	done bool
}

// Next advances to the next child. It returns false when the
// enumeration is exhausted or failed; Err distinguishes the two.
func (it *ChildIter) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	if it.enum == nil {
		if !it.start() {
			return false
		}
	}
	for it.off >= len(it.page) {
		page, err := it.enum.Next(it.ctx)
		if err != nil {
			it.fail(contentErr("enumerate children", it.parent.fullPath, err))
			return false
		}
		metrics.EnumerationPagesTotal.Inc()
		if len(page) == 0 {
			it.stop()
			return false
		}
		it.page = page
		it.off = 0
	}

	id := it.page[it.off]
	it.off++
	child := newContent(it.parent.dev, id, "")
	if err := child.resolve(it.ctx); err != nil {
		it.fail(err)
		return false
	}
	child.fullPath = devpath.Join(it.parent.fullPath, child.props.Name)
	it.cur = child
	return true
}

// Content returns the child yielded by the last successful Next.
func (it *ChildIter) Content() *Content { return it.cur }

// Err returns the error that terminated the iteration, nil after a
// clean exhaustion.
func (it *ChildIter) Err() error { return it.err }

// Release frees the backend cursor. It is called automatically when the
// iteration ends; calling it again is harmless.
func (it *ChildIter) Release() {
	if it.enum != nil {
		it.enum.Release()
		it.enum = nil
	}
	it.done = true
}

func (it *ChildIter) start() bool {
	conn, err := it.parent.dev.open(it.ctx)
	if err != nil {
		it.fail(deviceErr("open", it.parent.dev.id, err))
		return false
	}
	enum, err := conn.Children(it.ctx, it.parent.id)
	if err != nil {
		it.fail(contentErr("enumerate children", it.parent.fullPath, err))
		return false
	}
	it.enum = enum
	return true
}

func (it *ChildIter) fail(err error) {
	it.err = err
	it.cur = nil
	it.Release()
}

func (it *ChildIter) stop() {
	it.cur = nil
	it.Release()
}
