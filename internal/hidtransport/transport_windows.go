//go:build windows

package hidtransport

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Raw Windows HID access via SetupAPI/HidD syscalls, no cgo.

var (
	hidDLL      = windows.NewLazySystemDLL("hid.dll")
	setupapiDLL = windows.NewLazySystemDLL("setupapi.dll")

	procHidD_GetHidGuid                  = hidDLL.NewProc("HidD_GetHidGuid")
	procHidD_GetAttributes               = hidDLL.NewProc("HidD_GetAttributes")
	procHidD_GetProductString            = hidDLL.NewProc("HidD_GetProductString")
	procHidD_GetManufacturerString       = hidDLL.NewProc("HidD_GetManufacturerString")
	procHidD_GetSerialNumberString       = hidDLL.NewProc("HidD_GetSerialNumberString")
	procHidD_GetPreparsedData            = hidDLL.NewProc("HidD_GetPreparsedData")
	procHidD_FreePreparsedData           = hidDLL.NewProc("HidD_FreePreparsedData")
	procHidP_GetCaps                     = hidDLL.NewProc("HidP_GetCaps")
	procSetupDiGetClassDevsW             = setupapiDLL.NewProc("SetupDiGetClassDevsW")
	procSetupDiEnumDeviceInterfaces      = setupapiDLL.NewProc("SetupDiEnumDeviceInterfaces")
	procSetupDiGetDeviceInterfaceDetailW = setupapiDLL.NewProc("SetupDiGetDeviceInterfaceDetailW")
	procSetupDiDestroyDeviceInfoList     = setupapiDLL.NewProc("SetupDiDestroyDeviceInfoList")
)

const (
	digcfPresent         = 0x00000002
	digcfDeviceInterface = 0x00000010
	invalidHandleValue   = ^uintptr(0)
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

type hiddAttributes struct {
	Size          uint32
	VendorID      uint16
	ProductID     uint16
	VersionNumber uint16
}

type spDeviceInterfaceData struct {
	CbSize             uint32
	InterfaceClassGuid guid
	Flags              uint32
	Reserved           uintptr
}

type spDeviceInterfaceDetailData struct {
	CbSize     uint32
	DevicePath [1]uint16
}

type hidpCaps struct {
	Usage                     uint16
	UsagePage                 uint16
	InputReportByteLength     uint16
	OutputReportByteLength    uint16
	FeatureReportByteLength   uint16
	Reserved                  [17]uint16
	NumberLinkCollectionNodes uint16
	NumberInputButtonCaps     uint16
	NumberInputValueCaps      uint16
	NumberInputDataIndices    uint16
	NumberOutputButtonCaps    uint16
	NumberOutputValueCaps     uint16
	NumberOutputDataIndices   uint16
	NumberFeatureButtonCaps   uint16
	NumberFeatureValueCaps    uint16
	NumberFeatureDataIndices  uint16
}

type winManager struct{}

func newManager() (Manager, error) { return &winManager{}, nil }

func (m *winManager) List() ([]Info, error) {
	var hidGUID guid
	procHidD_GetHidGuid.Call(uintptr(unsafe.Pointer(&hidGUID)))

	devInfo, _, err := procSetupDiGetClassDevsW.Call(
		uintptr(unsafe.Pointer(&hidGUID)), 0, 0, digcfPresent|digcfDeviceInterface)
	if devInfo == 0 || devInfo == invalidHandleValue {
		return nil, fmt.Errorf("SetupDiGetClassDevsW failed: %v", err)
	}
	defer procSetupDiDestroyDeviceInfoList.Call(devInfo)

	var devices []Info
	var ifaceData spDeviceInterfaceData
	ifaceData.CbSize = uint32(unsafe.Sizeof(ifaceData))

	for i := uint32(0); ; i++ {
		r, _, _ := procSetupDiEnumDeviceInterfaces.Call(
			devInfo, 0, uintptr(unsafe.Pointer(&hidGUID)), uintptr(i), uintptr(unsafe.Pointer(&ifaceData)))
		if r == 0 {
			break
		}

		var requiredSize uint32
		procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo, uintptr(unsafe.Pointer(&ifaceData)), 0, 0, uintptr(unsafe.Pointer(&requiredSize)), 0)

		detailBuf := make([]byte, requiredSize)
		detail := (*spDeviceInterfaceDetailData)(unsafe.Pointer(&detailBuf[0]))
		if unsafe.Sizeof(uintptr(0)) == 8 {
			detail.CbSize = 8
		} else {
			detail.CbSize = 6
		}

		r, _, err = procSetupDiGetDeviceInterfaceDetailW.Call(
			devInfo, uintptr(unsafe.Pointer(&ifaceData)), uintptr(unsafe.Pointer(detail)), uintptr(requiredSize), 0, 0)
		if r == 0 {
			continue
		}

		path := windows.UTF16PtrToString(&detail.DevicePath[0])

		h, err := windows.CreateFile(&detail.DevicePath[0], 0,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING, 0, 0)
		if err != nil {
			continue
		}

		var attrs hiddAttributes
		attrs.Size = uint32(unsafe.Sizeof(attrs))
		r, _, _ = procHidD_GetAttributes.Call(uintptr(h), uintptr(unsafe.Pointer(&attrs)))

		var manufacturer, product, serial string
		if r != 0 {
			mfr := make([]uint16, 256)
			procHidD_GetManufacturerString.Call(uintptr(h), uintptr(unsafe.Pointer(&mfr[0])), uintptr(len(mfr)*2))
			manufacturer = windows.UTF16ToString(mfr)

			prod := make([]uint16, 256)
			procHidD_GetProductString.Call(uintptr(h), uintptr(unsafe.Pointer(&prod[0])), uintptr(len(prod)*2))
			product = windows.UTF16ToString(prod)

			ser := make([]uint16, 256)
			procHidD_GetSerialNumberString.Call(uintptr(h), uintptr(unsafe.Pointer(&ser[0])), uintptr(len(ser)*2))
			serial = windows.UTF16ToString(ser)
		}

		windows.CloseHandle(h)

		if r != 0 {
			devices = append(devices, Info{
				Path: path, VendorID: attrs.VendorID, ProductID: attrs.ProductID,
				Manufacturer: manufacturer, Product: product, SerialNumber: serial,
			})
		}
	}

	return devices, nil
}

func (m *winManager) Open(info Info) (Device, error) {
	pathPtr, err := windows.UTF16PtrFromString(info.Path)
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFile(pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE, nil, windows.OPEN_EXISTING, windows.FILE_FLAG_OVERLAPPED, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateFile failed: %v", err)
	}

	var preparsed uintptr
	r, _, _ := procHidD_GetPreparsedData.Call(uintptr(h), uintptr(unsafe.Pointer(&preparsed)))
	if r == 0 {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("HidD_GetPreparsedData failed")
	}

	var caps hidpCaps
	r, _, _ = procHidP_GetCaps.Call(preparsed, uintptr(unsafe.Pointer(&caps)))
	procHidD_FreePreparsedData.Call(preparsed)

	const hidpStatusSuccess = 0x00110000
	if r != hidpStatusSuccess {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("HidP_GetCaps failed: 0x%X", r)
	}

	return &winDevice{
		handle:     h,
		inputLen:   int(caps.InputReportByteLength),
		outputLen:  int(caps.OutputReportByteLength),
	}, nil
}

type winDevice struct {
	handle    windows.Handle
	inputLen  int
	outputLen int
}

func (d *winDevice) WriteReport(data []byte) error {
	report := make([]byte, d.outputLen)
	copy(report, data)
	var written uint32
	if err := windows.WriteFile(d.handle, report, &written, nil); err != nil {
		return fmt.Errorf("WriteFile failed: %v", err)
	}
	return nil
}

// ReadReport issues an overlapped ReadFile and waits up to timeout for it
// to complete, cancelling the I/O on expiry so the handle stays usable for
// the next call.
func (d *winDevice) ReadReport(timeout time.Duration) ([]byte, error) {
	report := make([]byte, d.inputLen)
	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateEvent failed: %v", err)
	}
	defer windows.CloseHandle(event)

	overlapped := &windows.Overlapped{HEvent: event}
	var read uint32
	err = windows.ReadFile(d.handle, report, &read, overlapped)
	if err != nil && err != windows.ERROR_IO_PENDING {
		return nil, fmt.Errorf("ReadFile failed: %v", err)
	}

	waitResult, err := windows.WaitForSingleObject(event, uint32(timeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("WaitForSingleObject failed: %v", err)
	}
	if waitResult == uint32(windows.WAIT_TIMEOUT) {
		windows.CancelIoEx(d.handle, overlapped)
		return nil, fmt.Errorf("read timed out after %s", timeout)
	}

	if err := windows.GetOverlappedResult(d.handle, overlapped, &read, false); err != nil {
		return nil, fmt.Errorf("GetOverlappedResult failed: %v", err)
	}
	return report[:read], nil
}

func (d *winDevice) Close() error { return windows.CloseHandle(d.handle) }
