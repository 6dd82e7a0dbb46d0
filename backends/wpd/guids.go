//go:build windows

package wpd

import "github.com/go-ole/go-ole"

// Class and interface IDs of the Windows Portable Device COM API.
var (
	clsidPortableDeviceManager = ole.NewGUID("{0AF10CEC-2ECD-4B92-9581-34F6AE0637F3}")
	clsidPortableDeviceFTM     = ole.NewGUID("{F7C0039A-4762-488A-B4B3-760EF9A1BA9B}")
	clsidPortableDeviceValues  = ole.NewGUID("{0C15D503-D017-47CE-9016-7B3F978721CC}")
	clsidPortableDeviceKeys    = ole.NewGUID("{DE2D022D-2480-43BE-97F0-D1FA2CF98F4F}")
	clsidPropVariantCollection = ole.NewGUID("{08A99E2F-6D6D-4B80-AF5A-BAF2BCBE4CB9}")

	iidPortableDeviceManager = ole.NewGUID("{A1567595-4C2F-4574-A6FA-ECEF917B9A40}")
	iidPortableDevice        = ole.NewGUID("{625E2DF8-6392-4CF0-9AD1-3CFA5F17775C}")
	iidPortableDeviceValues  = ole.NewGUID("{6848F6F2-3155-4F86-B6F5-263EEEAB3143}")
	iidPortableDeviceKeys    = ole.NewGUID("{DADA2357-E0AD-492E-98DB-DD61C53BA353}")
	iidPropVariantCollection = ole.NewGUID("{89B2E422-4F1B-4316-BCEF-A44AFEA83EB3}")
)

// propertyKey identifies one WPD property: a category GUID plus an index
// within the category.
type propertyKey struct {
	FmtID ole.GUID
	PID   uint32
}

func key(fmtid string, pid uint32) propertyKey {
	return propertyKey{FmtID: *ole.NewGUID(fmtid), PID: pid}
}

const (
	fmtidObject  = "{EF6B490D-5CD8-437A-AFFC-DA8B60EE4A3C}"
	fmtidStorage = "{01A3057A-74D6-4E80-BEA7-DC4C212CE50A}"
	fmtidDevice  = "{26D4979A-E643-4626-9E2B-736DC0C92FDC}"
	fmtidClient  = "{204D9F0C-2292-4080-9F42-40664E70F859}"
)

var (
	keyObjectParentID     = key(fmtidObject, 3)
	keyObjectName         = key(fmtidObject, 4)
	keyObjectContentType  = key(fmtidObject, 7)
	keyObjectSize         = key(fmtidObject, 11)
	keyObjectOriginalName = key(fmtidObject, 12)
	keyObjectDateModified = key(fmtidObject, 19)

	keyStorageCapacity = key(fmtidStorage, 4)
	keyStorageFree     = key(fmtidStorage, 5)
	keyStorageSerial   = key(fmtidStorage, 8)

	keyDeviceSerial       = key(fmtidDevice, 9)
	keyDeviceFriendlyName = key(fmtidDevice, 12)

	keyClientName         = key(fmtidClient, 2)
	keyClientMajorVersion = key(fmtidClient, 3)
	keyClientMinorVersion = key(fmtidClient, 4)
	keyClientRevision     = key(fmtidClient, 5)

	// WPD_RESOURCE_DEFAULT, the object's primary byte stream.
	keyResourceDefault = propertyKey{
		FmtID: *ole.NewGUID("{E81E79BE-34F0-41BF-B53F-F1A06AE87842}"),
		PID:   0,
	}
)

// Content type GUIDs reported under keyObjectContentType. Functional
// objects and storages both present as storages above the backend
// boundary; everything that is neither a storage nor a folder is a file.
var (
	contentTypeFunctionalObject = ole.NewGUID("{99ED0160-17FF-4C44-9D98-1D7A6F941921}")
	contentTypeStorage          = ole.NewGUID("{23F05BBC-15DE-4C2A-A55B-A9AF5CE412EF}")
	contentTypeFolder           = ole.NewGUID("{27E2E392-A111-48E0-AB0C-E17705A05F85}")
)

const (
	// deviceObjectID is the well-known ID of the device root object.
	deviceObjectID = "DEVICE"

	// deleteWithRecursion is the IPortableDeviceContent.Delete flag that
	// removes an object together with its subtree.
	deleteWithRecursion = 1

	stgmRead  = 0x0
	stgmWrite = 0x1

	enumPageSize = 16
)
