package portable

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/portablefs/portablefs/internal/devpath"
	"github.com/portablefs/portablefs/metrics"
)

// UploadStream creates a file named name of exactly size bytes under
// this node and fills it from r, transferring one device block at a
// time. The transfer is finalized only after all bytes are written; if
// it is interrupted the device may be left holding a partial object
// under that name. It fails with a ContentIOError when the create, a
// write or the finalization fails.
func (c *Content) UploadStream(ctx context.Context, name string, size int64, r io.Reader) error {
	path := devpath.Join(c.fullPath, name)
	conn, err := c.dev.open(ctx)
	if err != nil {
		return deviceErr("open", c.dev.id, err)
	}
	ws, err := conn.CreateFile(ctx, c.id, name, size)
	if err != nil {
		return contentErr("create file", path, err)
	}
	buf := make([]byte, ws.BlockSize())
	n, err := io.CopyBuffer(ws, r, buf)
	metrics.TransferBytesTotal.WithLabelValues("upload").Add(float64(n))
	if err != nil {
		ws.Close()
		return contentErr("upload", path, err)
	}
	if n != size {
		ws.Close()
		return contentErr("upload", path, fmt.Errorf("short source: wrote %d of %d bytes", n, size))
	}
	if err := ws.Commit(); err != nil {
		ws.Close()
		return contentErr("upload", path, err)
	}
	if err := ws.Close(); err != nil {
		return contentErr("upload", path, err)
	}
	c.dev.mgr.logger.Debug("uploaded file",
		zap.String("path", path), zap.Int64("bytes", size))
	return nil
}

// DownloadStream copies this file's content into w, one device block at
// a time. It fails with a ContentIOError when the node's content cannot
// be opened or a read fails, and passes write errors from w through.
func (c *Content) DownloadStream(ctx context.Context, w io.Writer) error {
	conn, err := c.dev.open(ctx)
	if err != nil {
		return deviceErr("open", c.dev.id, err)
	}
	rs, err := conn.OpenRead(ctx, c.id)
	if err != nil {
		return contentErr("open for read", c.fullPath, err)
	}
	defer rs.Close()
	buf := make([]byte, rs.BlockSize())
	n, err := io.CopyBuffer(w, rs, buf)
	metrics.TransferBytesTotal.WithLabelValues("download").Add(float64(n))
	if err != nil {
		return contentErr("download", c.fullPath, err)
	}
	return nil
}

// UploadFile uploads the local file at localPath under this node as
// name. The local file is closed on every path.
func (c *Content) UploadFile(ctx context.Context, name, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return contentErr("upload", devpath.Join(c.fullPath, name), err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return contentErr("upload", devpath.Join(c.fullPath, name), err)
	}
	return c.UploadStream(ctx, name, fi.Size(), f)
}

// DownloadFile copies this file's content to the local path, creating
// or truncating it. The local file is closed on every path; a failed
// transfer leaves whatever was written so far.
func (c *Content) DownloadFile(ctx context.Context, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return contentErr("download", c.fullPath, err)
	}
	if err := c.DownloadStream(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return contentErr("download", c.fullPath, err)
	}
	return nil
}
