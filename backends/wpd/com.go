//go:build windows

package wpd

import (
	"errors"
	"runtime"
	"syscall"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"
)

var errNotADate = errors.New("wpd: property is not a date")

var (
	ole32                = syscall.NewLazyDLL("ole32.dll")
	procCoTaskMemFree    = ole32.NewProc("CoTaskMemFree")
	procPropVariantClear = ole32.NewProc("PropVariantClear")
)

func coTaskMemFree(p unsafe.Pointer) {
	if p != nil {
		procCoTaskMemFree.Call(uintptr(p))
	}
}

func hrToErr(hr uintptr) error {
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

// takeWSTR converts a COM-allocated wide string to a Go string and frees
// the native buffer.
func takeWSTR(p *uint16) string {
	if p == nil {
		return ""
	}
	s := ole.LpOleStrToString(p)
	coTaskMemFree(unsafe.Pointer(p))
	return s
}

// createInstance instantiates a COM class and returns the raw interface
// pointer for the requested IID.
func createInstance(clsid, iid *ole.GUID) (unsafe.Pointer, error) {
	unk, err := ole.CreateInstance(clsid, iid)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(unk), nil
}

// iPortableDeviceManager wraps the device-manager singleton.
type iPortableDeviceManager struct{ ole.IUnknown }

type iPortableDeviceManagerVtbl struct {
	ole.IUnknownVtbl
	GetDevices            uintptr
	RefreshDeviceList     uintptr
	GetDeviceFriendlyName uintptr
	GetDeviceDescription  uintptr
	GetDeviceManufacturer uintptr
	GetDeviceProperty     uintptr
	GetPrivateDevices     uintptr
}

func (v *iPortableDeviceManager) vtbl() *iPortableDeviceManagerVtbl {
	return (*iPortableDeviceManagerVtbl)(unsafe.Pointer(v.RawVTable))
}

// DeviceIDs lists the PnP IDs of all attached devices after refreshing
// the manager's cached view.
func (v *iPortableDeviceManager) DeviceIDs() ([]string, error) {
	hr, _, _ := syscall.SyscallN(v.vtbl().RefreshDeviceList, uintptr(unsafe.Pointer(v)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	var count uint32
	hr, _, _ = syscall.SyscallN(v.vtbl().GetDevices,
		uintptr(unsafe.Pointer(v)), 0, uintptr(unsafe.Pointer(&count)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	ptrs := make([]*uint16, count)
	hr, _, _ = syscall.SyscallN(v.vtbl().GetDevices,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&ptrs[0])),
		uintptr(unsafe.Pointer(&count)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	ids := make([]string, 0, count)
	for _, p := range ptrs[:count] {
		ids = append(ids, takeWSTR(p))
	}
	return ids, nil
}

// deviceString calls one of the fixed-buffer string getters, probing the
// needed length first.
func (v *iPortableDeviceManager) deviceString(method uintptr, id string) (string, error) {
	wid, err := syscall.UTF16PtrFromString(id)
	if err != nil {
		return "", err
	}
	var n uint32
	hr, _, _ := syscall.SyscallN(method,
		uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(wid)), 0,
		uintptr(unsafe.Pointer(&n)))
	if err := hrToErr(hr); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]uint16, n)
	hr, _, _ = syscall.SyscallN(method,
		uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(wid)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&n)))
	runtime.KeepAlive(wid)
	if err := hrToErr(hr); err != nil {
		return "", err
	}
	return syscall.UTF16ToString(buf), nil
}

func (v *iPortableDeviceManager) FriendlyName(id string) (string, error) {
	return v.deviceString(v.vtbl().GetDeviceFriendlyName, id)
}

func (v *iPortableDeviceManager) Description(id string) (string, error) {
	return v.deviceString(v.vtbl().GetDeviceDescription, id)
}

// iPortableDevice wraps one opened device.
type iPortableDevice struct{ ole.IUnknown }

type iPortableDeviceVtbl struct {
	ole.IUnknownVtbl
	Open           uintptr
	SendCommand    uintptr
	Content        uintptr
	Capabilities   uintptr
	Cancel         uintptr
	Close          uintptr
	Advise         uintptr
	Unadvise       uintptr
	GetPnPDeviceID uintptr
}

func (v *iPortableDevice) vtbl() *iPortableDeviceVtbl {
	return (*iPortableDeviceVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iPortableDevice) Open(id string, clientInfo *iPortableDeviceValues) error {
	wid, err := syscall.UTF16PtrFromString(id)
	if err != nil {
		return err
	}
	hr, _, _ := syscall.SyscallN(v.vtbl().Open,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(wid)),
		uintptr(unsafe.Pointer(clientInfo)))
	runtime.KeepAlive(wid)
	return hrToErr(hr)
}

func (v *iPortableDevice) Content() (*iPortableDeviceContent, error) {
	var content *iPortableDeviceContent
	hr, _, _ := syscall.SyscallN(v.vtbl().Content,
		uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(&content)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	return content, nil
}

func (v *iPortableDevice) Close() error {
	hr, _, _ := syscall.SyscallN(v.vtbl().Close, uintptr(unsafe.Pointer(v)))
	return hrToErr(hr)
}

// iPortableDeviceContent wraps the content facility of an opened device.
type iPortableDeviceContent struct{ ole.IUnknown }

type iPortableDeviceContentVtbl struct {
	ole.IUnknownVtbl
	EnumObjects                          uintptr
	Properties                           uintptr
	Transfer                             uintptr
	CreateObjectWithPropertiesOnly       uintptr
	CreateObjectWithPropertiesAndData    uintptr
	Delete                               uintptr
	GetObjectIDsFromPersistentUniqueIDs  uintptr
	Cancel                               uintptr
	Move                                 uintptr
	Copy                                 uintptr
}

func (v *iPortableDeviceContent) vtbl() *iPortableDeviceContentVtbl {
	return (*iPortableDeviceContentVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iPortableDeviceContent) EnumObjects(parent string) (*iEnumObjectIDs, error) {
	wparent, err := syscall.UTF16PtrFromString(parent)
	if err != nil {
		return nil, err
	}
	var enum *iEnumObjectIDs
	hr, _, _ := syscall.SyscallN(v.vtbl().EnumObjects,
		uintptr(unsafe.Pointer(v)), 0,
		uintptr(unsafe.Pointer(wparent)), 0,
		uintptr(unsafe.Pointer(&enum)))
	runtime.KeepAlive(wparent)
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	return enum, nil
}

func (v *iPortableDeviceContent) Properties() (*iPortableDeviceProperties, error) {
	var props *iPortableDeviceProperties
	hr, _, _ := syscall.SyscallN(v.vtbl().Properties,
		uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(&props)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	return props, nil
}

func (v *iPortableDeviceContent) Transfer() (*iPortableDeviceResources, error) {
	var res *iPortableDeviceResources
	hr, _, _ := syscall.SyscallN(v.vtbl().Transfer,
		uintptr(unsafe.Pointer(v)), uintptr(unsafe.Pointer(&res)))
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	return res, nil
}

func (v *iPortableDeviceContent) CreateObjectWithPropertiesOnly(values *iPortableDeviceValues) (string, error) {
	var id *uint16
	hr, _, _ := syscall.SyscallN(v.vtbl().CreateObjectWithPropertiesOnly,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(values)),
		uintptr(unsafe.Pointer(&id)))
	if err := hrToErr(hr); err != nil {
		return "", err
	}
	return takeWSTR(id), nil
}

func (v *iPortableDeviceContent) CreateObjectWithPropertiesAndData(values *iPortableDeviceValues) (*iStream, uint32, error) {
	var stream *iStream
	var optimal uint32
	hr, _, _ := syscall.SyscallN(v.vtbl().CreateObjectWithPropertiesAndData,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(values)),
		uintptr(unsafe.Pointer(&stream)),
		uintptr(unsafe.Pointer(&optimal)),
		0)
	if err := hrToErr(hr); err != nil {
		return nil, 0, err
	}
	return stream, optimal, nil
}

func (v *iPortableDeviceContent) Delete(recursive bool, ids *iPropVariantCollection) error {
	var flags uintptr
	if recursive {
		flags = deleteWithRecursion
	}
	hr, _, _ := syscall.SyscallN(v.vtbl().Delete,
		uintptr(unsafe.Pointer(v)), flags,
		uintptr(unsafe.Pointer(ids)), 0)
	return hrToErr(hr)
}

// iPortableDeviceProperties wraps the batched property facility.
type iPortableDeviceProperties struct{ ole.IUnknown }

type iPortableDevicePropertiesVtbl struct {
	ole.IUnknownVtbl
	GetSupportedProperties uintptr
	GetPropertyAttributes  uintptr
	GetValues              uintptr
	SetValues              uintptr
	Delete                 uintptr
	Cancel                 uintptr
}

func (v *iPortableDeviceProperties) vtbl() *iPortableDevicePropertiesVtbl {
	return (*iPortableDevicePropertiesVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iPortableDeviceProperties) GetValues(objectID string, keys *iPortableDeviceKeyCollection) (*iPortableDeviceValues, error) {
	wid, err := syscall.UTF16PtrFromString(objectID)
	if err != nil {
		return nil, err
	}
	var values *iPortableDeviceValues
	hr, _, _ := syscall.SyscallN(v.vtbl().GetValues,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(wid)),
		uintptr(unsafe.Pointer(keys)),
		uintptr(unsafe.Pointer(&values)))
	runtime.KeepAlive(wid)
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	return values, nil
}

// iPortableDeviceResources wraps resource streams of content objects.
type iPortableDeviceResources struct{ ole.IUnknown }

type iPortableDeviceResourcesVtbl struct {
	ole.IUnknownVtbl
	GetSupportedResources uintptr
	GetResourceAttributes uintptr
	GetStream             uintptr
	Delete                uintptr
	Cancel                uintptr
	CreateResource        uintptr
}

func (v *iPortableDeviceResources) vtbl() *iPortableDeviceResourcesVtbl {
	return (*iPortableDeviceResourcesVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iPortableDeviceResources) GetStream(objectID string, key propertyKey, mode uint32) (*iStream, uint32, error) {
	wid, err := syscall.UTF16PtrFromString(objectID)
	if err != nil {
		return nil, 0, err
	}
	var stream *iStream
	var optimal uint32
	hr, _, _ := syscall.SyscallN(v.vtbl().GetStream,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(wid)),
		uintptr(unsafe.Pointer(&key)),
		uintptr(mode),
		uintptr(unsafe.Pointer(&optimal)),
		uintptr(unsafe.Pointer(&stream)))
	runtime.KeepAlive(wid)
	if err := hrToErr(hr); err != nil {
		return nil, 0, err
	}
	return stream, optimal, nil
}

// iEnumObjectIDs wraps one child enumeration cursor.
type iEnumObjectIDs struct{ ole.IUnknown }

type iEnumObjectIDsVtbl struct {
	ole.IUnknownVtbl
	Next   uintptr
	Skip   uintptr
	Reset  uintptr
	Clone  uintptr
	Cancel uintptr
}

func (v *iEnumObjectIDs) vtbl() *iEnumObjectIDsVtbl {
	return (*iEnumObjectIDsVtbl)(unsafe.Pointer(v.RawVTable))
}

// Next fetches up to n child object IDs. A short or empty result marks
// the end of the enumeration.
func (v *iEnumObjectIDs) Next(n int) ([]string, error) {
	ptrs := make([]*uint16, n)
	var fetched uint32
	hr, _, _ := syscall.SyscallN(v.vtbl().Next,
		uintptr(unsafe.Pointer(v)),
		uintptr(uint32(n)),
		uintptr(unsafe.Pointer(&ptrs[0])),
		uintptr(unsafe.Pointer(&fetched)))
	// S_FALSE reports a final short page and is not a failure.
	if err := hrToErr(hr); err != nil {
		return nil, err
	}
	ids := make([]string, 0, fetched)
	for _, p := range ptrs[:fetched] {
		ids = append(ids, takeWSTR(p))
	}
	return ids, nil
}

// iPortableDeviceValues wraps one property bag. Only the typed accessors
// the backend needs are bound.
type iPortableDeviceValues struct{ ole.IUnknown }

type iPortableDeviceValuesVtbl struct {
	ole.IUnknownVtbl
	GetCount                                 uintptr
	GetAt                                    uintptr
	SetValue                                 uintptr
	GetValue                                 uintptr
	SetStringValue                           uintptr
	GetStringValue                           uintptr
	SetUnsignedIntegerValue                  uintptr
	GetUnsignedIntegerValue                  uintptr
	SetSignedIntegerValue                    uintptr
	GetSignedIntegerValue                    uintptr
	SetUnsignedLargeIntegerValue             uintptr
	GetUnsignedLargeIntegerValue             uintptr
	SetSignedLargeIntegerValue               uintptr
	GetSignedLargeIntegerValue               uintptr
	SetFloatValue                            uintptr
	GetFloatValue                            uintptr
	SetErrorValue                            uintptr
	GetErrorValue                            uintptr
	SetKeyValue                              uintptr
	GetKeyValue                              uintptr
	SetBoolValue                             uintptr
	GetBoolValue                             uintptr
	SetIUnknownValue                         uintptr
	GetIUnknownValue                         uintptr
	SetGuidValue                             uintptr
	GetGuidValue                             uintptr
	SetBufferValue                           uintptr
	GetBufferValue                           uintptr
	SetIPortableDeviceValuesValue            uintptr
	GetIPortableDeviceValuesValue            uintptr
	SetIPortableDevicePropVariantCollection  uintptr
	GetIPortableDevicePropVariantCollection  uintptr
	SetIPortableDeviceKeyCollectionValue     uintptr
	GetIPortableDeviceKeyCollectionValue     uintptr
	SetIPortableDeviceValuesCollectionValue  uintptr
	GetIPortableDeviceValuesCollectionValue  uintptr
	RemoveValue                              uintptr
	CopyValuesFromPropertyStore              uintptr
	CopyValuesToPropertyStore                uintptr
	Clear                                    uintptr
}

func (v *iPortableDeviceValues) vtbl() *iPortableDeviceValuesVtbl {
	return (*iPortableDeviceValuesVtbl)(unsafe.Pointer(v.RawVTable))
}

func newPortableDeviceValues() (*iPortableDeviceValues, error) {
	p, err := createInstance(clsidPortableDeviceValues, iidPortableDeviceValues)
	if err != nil {
		return nil, err
	}
	return (*iPortableDeviceValues)(p), nil
}

func (v *iPortableDeviceValues) SetString(k propertyKey, s string) error {
	ws, err := syscall.UTF16PtrFromString(s)
	if err != nil {
		return err
	}
	hr, _, _ := syscall.SyscallN(v.vtbl().SetStringValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(ws)))
	runtime.KeepAlive(ws)
	return hrToErr(hr)
}

func (v *iPortableDeviceValues) GetString(k propertyKey) (string, error) {
	var p *uint16
	hr, _, _ := syscall.SyscallN(v.vtbl().GetStringValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(&p)))
	if err := hrToErr(hr); err != nil {
		return "", err
	}
	return takeWSTR(p), nil
}

func (v *iPortableDeviceValues) SetUint32(k propertyKey, n uint32) error {
	hr, _, _ := syscall.SyscallN(v.vtbl().SetUnsignedIntegerValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(n))
	return hrToErr(hr)
}

func (v *iPortableDeviceValues) SetUint64(k propertyKey, n uint64) error {
	hr, _, _ := syscall.SyscallN(v.vtbl().SetUnsignedLargeIntegerValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(n))
	return hrToErr(hr)
}

func (v *iPortableDeviceValues) GetUint64(k propertyKey) (uint64, error) {
	var n uint64
	hr, _, _ := syscall.SyscallN(v.vtbl().GetUnsignedLargeIntegerValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(&n)))
	if err := hrToErr(hr); err != nil {
		return 0, err
	}
	return n, nil
}

func (v *iPortableDeviceValues) SetGUID(k propertyKey, g *ole.GUID) error {
	hr, _, _ := syscall.SyscallN(v.vtbl().SetGuidValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(g)))
	return hrToErr(hr)
}

func (v *iPortableDeviceValues) GetGUID(k propertyKey) (ole.GUID, error) {
	var g ole.GUID
	hr, _, _ := syscall.SyscallN(v.vtbl().GetGuidValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(&g)))
	if err := hrToErr(hr); err != nil {
		return ole.GUID{}, err
	}
	return g, nil
}

// GetTime reads a VT_DATE property through the untyped accessor.
func (v *iPortableDeviceValues) GetTime(k propertyKey) (t time.Time, err error) {
	var pv propVariant
	hr, _, _ := syscall.SyscallN(v.vtbl().GetValue,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&k)),
		uintptr(unsafe.Pointer(&pv)))
	if err := hrToErr(hr); err != nil {
		return time.Time{}, err
	}
	defer pv.clear()
	got, ok := pv.timeValue()
	if !ok {
		return time.Time{}, errNotADate
	}
	return got, nil
}

// iPortableDeviceKeyCollection wraps a reusable list of property keys.
type iPortableDeviceKeyCollection struct{ ole.IUnknown }

type iPortableDeviceKeyCollectionVtbl struct {
	ole.IUnknownVtbl
	GetCount uintptr
	GetAt    uintptr
	Add      uintptr
	Clear    uintptr
	RemoveAt uintptr
}

func (v *iPortableDeviceKeyCollection) vtbl() *iPortableDeviceKeyCollectionVtbl {
	return (*iPortableDeviceKeyCollectionVtbl)(unsafe.Pointer(v.RawVTable))
}

func newKeyCollection(keys ...propertyKey) (*iPortableDeviceKeyCollection, error) {
	p, err := createInstance(clsidPortableDeviceKeys, iidPortableDeviceKeys)
	if err != nil {
		return nil, err
	}
	coll := (*iPortableDeviceKeyCollection)(p)
	for i := range keys {
		hr, _, _ := syscall.SyscallN(coll.vtbl().Add,
			uintptr(unsafe.Pointer(coll)),
			uintptr(unsafe.Pointer(&keys[i])))
		if err := hrToErr(hr); err != nil {
			coll.Release()
			return nil, err
		}
	}
	return coll, nil
}

// iPropVariantCollection wraps a list of PROPVARIANTs, used to pass
// object IDs to Delete.
type iPropVariantCollection struct{ ole.IUnknown }

type iPropVariantCollectionVtbl struct {
	ole.IUnknownVtbl
	GetCount   uintptr
	GetType    uintptr
	GetAt      uintptr
	Add        uintptr
	Clear      uintptr
	RemoveAt   uintptr
	ChangeType uintptr
}

func (v *iPropVariantCollection) vtbl() *iPropVariantCollectionVtbl {
	return (*iPropVariantCollectionVtbl)(unsafe.Pointer(v.RawVTable))
}

// newObjectIDCollection builds a single-element collection holding one
// object ID. The collection copies the value on Add.
func newObjectIDCollection(id string) (*iPropVariantCollection, error) {
	p, err := createInstance(clsidPropVariantCollection, iidPropVariantCollection)
	if err != nil {
		return nil, err
	}
	coll := (*iPropVariantCollection)(p)
	var pv propVariant
	if err := pv.setString(id); err != nil {
		coll.Release()
		return nil, err
	}
	hr, _, _ := syscall.SyscallN(coll.vtbl().Add,
		uintptr(unsafe.Pointer(coll)),
		uintptr(unsafe.Pointer(&pv)))
	runtime.KeepAlive(&pv)
	if err := hrToErr(hr); err != nil {
		coll.Release()
		return nil, err
	}
	return coll, nil
}

// iStream wraps the COM byte stream handed out for resource transfers.
type iStream struct{ ole.IUnknown }

type iStreamVtbl struct {
	ole.IUnknownVtbl
	Read         uintptr
	Write        uintptr
	Seek         uintptr
	SetSize      uintptr
	CopyTo       uintptr
	Commit       uintptr
	Revert       uintptr
	LockRegion   uintptr
	UnlockRegion uintptr
	Stat         uintptr
	Clone        uintptr
}

func (v *iStream) vtbl() *iStreamVtbl {
	return (*iStreamVtbl)(unsafe.Pointer(v.RawVTable))
}

func (v *iStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n uint32
	hr, _, _ := syscall.SyscallN(v.vtbl().Read,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&p[0])),
		uintptr(uint32(len(p))),
		uintptr(unsafe.Pointer(&n)))
	if err := hrToErr(hr); err != nil {
		return int(n), err
	}
	return int(n), nil
}

func (v *iStream) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	var n uint32
	hr, _, _ := syscall.SyscallN(v.vtbl().Write,
		uintptr(unsafe.Pointer(v)),
		uintptr(unsafe.Pointer(&p[0])),
		uintptr(uint32(len(p))),
		uintptr(unsafe.Pointer(&n)))
	if err := hrToErr(hr); err != nil {
		return int(n), err
	}
	return int(n), nil
}

func (v *iStream) Commit() error {
	hr, _, _ := syscall.SyscallN(v.vtbl().Commit, uintptr(unsafe.Pointer(v)), 0)
	return hrToErr(hr)
}
