//go:build windows

package wpd

import (
	"syscall"
	"time"
	"unsafe"
)

const (
	vtDate   = 7
	vtLPWSTR = 31
)

// propVariant mirrors the 64-bit PROPVARIANT layout: a 16-bit type tag,
// three reserved words and a 16-byte union.
type propVariant struct {
	vt         uint16
	r1, r2, r3 uint16
	val        uint64
	_          uint64
}

func (pv *propVariant) setString(s string) error {
	p, err := syscall.UTF16PtrFromString(s)
	if err != nil {
		return err
	}
	pv.vt = vtLPWSTR
	pv.val = uint64(uintptr(unsafe.Pointer(p)))
	return nil
}

func (pv *propVariant) clear() {
	procPropVariantClear.Call(uintptr(unsafe.Pointer(pv)))
}

// oleDateToTime converts an OLE automation date, days since 1899-12-30,
// to a time.Time in the local zone the way the shell presents it.
func oleDateToTime(d float64) time.Time {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.Local)
	return epoch.Add(time.Duration(d * 24 * float64(time.Hour)))
}

// timeValue reads a VT_DATE variant out of a property bag value.
func (pv *propVariant) timeValue() (time.Time, bool) {
	if pv.vt != vtDate {
		return time.Time{}, false
	}
	return oleDateToTime(*(*float64)(unsafe.Pointer(&pv.val))), true
}
