package portable

import "fmt"

// DeviceAccessError reports that device enumeration, open or description
// lookup failed. It is always surfaced to the caller and never retried
// internally.
type DeviceAccessError struct {
	Op     string
	Device string
	Err    error
}

func (e *DeviceAccessError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("device access: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("device access: %s %s: %v", e.Op, e.Device, e.Err)
}

func (e *DeviceAccessError) Unwrap() error { return e.Err }

// ContentIOError reports that child enumeration, property fetch, create,
// delete or transfer failed against an already-opened device. It carries
// the lowest-level diagnostic for operator visibility.
type ContentIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *ContentIOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("content: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("content: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ContentIOError) Unwrap() error { return e.Err }

func deviceErr(op, device string, err error) error {
	return &DeviceAccessError{Op: op, Device: device, Err: err}
}

func contentErr(op, path string, err error) error {
	return &ContentIOError{Op: op, Path: path, Err: err}
}
