//go:build windows

package wpd

import "io"

// defaultBlockSize stands in when the device does not report an optimal
// transfer size.
const defaultBlockSize = 256 * 1024

func blockOrDefault(optimal uint32) int {
	if optimal == 0 {
		return defaultBlockSize
	}
	return int(optimal)
}

type readStream struct {
	s     *iStream
	block int
}

func (r *readStream) Read(p []byte) (int, error) {
	n, err := r.s.Read(p)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *readStream) BlockSize() int { return r.block }

func (r *readStream) Close() error {
	r.s.Release()
	return nil
}

type writeStream struct {
	s     *iStream
	block int
}

func (w *writeStream) Write(p []byte) (int, error) {
	n, err := w.s.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

func (w *writeStream) BlockSize() int { return w.block }

// Commit finalizes the transfer on the device. Without it the device is
// free to discard the object or keep a partial one.
func (w *writeStream) Commit() error { return w.s.Commit() }

func (w *writeStream) Close() error {
	w.s.Release()
	return nil
}
