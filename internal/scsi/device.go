package scsi

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/google/gousb"
)

// FrameSize is the size of a raw CD-DA sector in bytes
const FrameSize = 2352

// Command timeouts
const (
	controlTimeout = 5 * time.Second
	tocTimeout     = 10 * time.Second
	readTimeout    = 60 * time.Second
)

// KnownDevices are the drives probed when no vendor/product ID is given
var KnownDevices = []struct {
	VendorID  gousb.ID
	ProductID gousb.ID
	Name      string
}{
	{0x0e8d, 0x1887, "Hitachi-LG/MediaTek Slim Portable DVD Writer"},
	{0x152d, 0x2339, "JMicron USB CD/DVD"},
	{0x13fd, 0x0840, "Initio USB CD/DVD"},
	{0x1c6b, 0xa223, "Philips USB CD/DVD"},
}

// Device is an open USB CD drive
type Device struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint
	l      astikit.CompleteLogger
	name   string
	tag    uint32
}

// DeviceOptLogger returns the option to set the logger
func DeviceOptLogger(l astikit.StdLogger) func(*Device) {
	return func(d *Device) {
		d.l = astikit.AdaptStdLogger(l)
	}
}

// OpenDevice opens a USB CD drive. With a zero vendor or product ID the
// known devices are probed in order.
func OpenDevice(vendorID, productID gousb.ID, opts ...func(*Device)) (*Device, error) {
	d := &Device{
		ctx: gousb.NewContext(),
		l:   astikit.AdaptStdLogger(nil),
		tag: 1,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.open(vendorID, productID); err != nil {
		d.Close()
		return nil, err
	}

	d.l.Infof("scsi: found %s, endpoints OUT=0x%02x IN=0x%02x",
		d.name, uint8(d.epOut.Desc.Address), uint8(d.epIn.Desc.Address))
	return d, nil
}

func (d *Device) open(vendorID, productID gousb.ID) (err error) {
	if vendorID != 0 && productID != 0 {
		if d.dev, err = d.ctx.OpenDeviceWithVIDPID(vendorID, productID); err != nil {
			return fmt.Errorf("scsi: opening device %s:%s failed: %w", vendorID, productID, err)
		}
		d.name = fmt.Sprintf("%s:%s", vendorID, productID)
	} else {
		for _, known := range KnownDevices {
			if d.dev, err = d.ctx.OpenDeviceWithVIDPID(known.VendorID, known.ProductID); err == nil && d.dev != nil {
				d.name = known.Name
				break
			}
		}
	}
	if d.dev == nil {
		return ErrDeviceNotFound
	}

	// Not every platform supports detaching the kernel driver
	if err := d.dev.SetAutoDetach(true); err != nil {
		d.l.Debugf("scsi: auto detach unavailable: %v", err)
	}

	if d.config, err = d.dev.Config(1); err != nil {
		return fmt.Errorf("scsi: getting config failed: %w", err)
	}

	if d.intf = d.massStorageInterface(); d.intf == nil {
		return fmt.Errorf("%w: no usable interface", ErrNoBulkEndpoints)
	}

	for _, ep := range d.intf.Setting.Endpoints {
		if ep.Direction == gousb.EndpointDirectionIn {
			if in, err := d.intf.InEndpoint(ep.Number); err == nil {
				d.epIn = in
			}
		} else if out, err := d.intf.OutEndpoint(ep.Number); err == nil {
			d.epOut = out
		}
	}
	if d.epIn == nil || d.epOut == nil {
		return ErrNoBulkEndpoints
	}
	return nil
}

// massStorageInterface claims the first mass storage interface, falling
// back to the first claimable interface for drives with a vendor class.
func (d *Device) massStorageInterface() *gousb.Interface {
	for _, desc := range d.config.Desc.Interfaces {
		for _, alt := range desc.AltSettings {
			if alt.Class != gousb.ClassMassStorage {
				continue
			}
			if intf, err := d.config.Interface(desc.Number, alt.Alternate); err == nil {
				return intf
			}
		}
	}
	for _, desc := range d.config.Desc.Interfaces {
		if intf, err := d.config.Interface(desc.Number, 0); err == nil {
			return intf
		}
	}
	return nil
}

// Name returns the drive name used in logs
func (d *Device) Name() string {
	return d.name
}

// Close releases all USB resources
func (d *Device) Close() {
	if d.intf != nil {
		d.intf.Close()
	}
	if d.config != nil {
		d.config.Close()
	}
	if d.dev != nil {
		d.dev.Close()
	}
	if d.ctx != nil {
		d.ctx.Close()
	}
}

// SendCommand runs one bulk-only transaction: CBW out, optional data in and
// CSW in, each bounded by timeout. A failed data phase still reads the CSW
// so the drive stays in sync.
func (d *Device) SendCommand(ctx context.Context, cdb []byte, dataLen int, timeout time.Duration) (data []byte, status byte, err error) {
	status = 0xFF

	direction := byte(DirectionIn)
	if dataLen == 0 {
		direction = DirectionOut
	}
	cbw := BuildCBW(d.tag, uint32(dataLen), direction, cdb)
	d.tag++

	if err = d.phase(ctx, timeout, func(ctx context.Context) error {
		n, err := d.epOut.WriteContext(ctx, cbw)
		if err == nil && n != len(cbw) {
			err = fmt.Errorf("%w: CBW wrote %d of %d bytes", ErrShortTransfer, n, len(cbw))
		}
		return err
	}); err != nil {
		err = fmt.Errorf("scsi: writing CBW failed: %w", err)
		return
	}

	if dataLen > 0 {
		buf := make([]byte, dataLen)
		if err := d.phase(ctx, timeout, func(ctx context.Context) error {
			n, err := d.epIn.ReadContext(ctx, buf)
			buf = buf[:n]
			return err
		}); err != nil {
			d.l.Debugf("scsi: data phase of opcode 0x%02x failed: %v", cdb[0], err)
		} else {
			data = buf
		}
	}

	raw := make([]byte, CSWSize)
	if err = d.phase(ctx, timeout, func(ctx context.Context) error {
		_, err := d.epIn.ReadContext(ctx, raw)
		return err
	}); err != nil {
		err = fmt.Errorf("scsi: reading CSW failed: %w", err)
		return
	}

	var csw CSW
	if csw, err = ParseCSW(raw); err != nil {
		return
	}
	status = csw.Status
	return
}

func (d *Device) phase(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

// Inquiry identifies the drive
func (d *Device) Inquiry(ctx context.Context) (InquiryData, error) {
	data, status, err := d.SendCommand(ctx, BuildInquiry(), inquiryLen, controlTimeout)
	if err != nil {
		return InquiryData{}, fmt.Errorf("scsi: INQUIRY: %w", err)
	}
	if status != StatusPassed {
		return InquiryData{}, fmt.Errorf("%w: INQUIRY status %d", ErrCommandFailed, status)
	}
	return ParseInquiry(data)
}

// TestUnitReady returns true if a disc is loaded and the drive is ready
func (d *Device) TestUnitReady(ctx context.Context) bool {
	_, status, err := d.SendCommand(ctx, BuildTestUnitReady(), 0, controlTimeout)
	return err == nil && status == StatusPassed
}

// ReadTOCRaw returns the raw READ TOC reply, for cdda.ParseTOC
func (d *Device) ReadTOCRaw(ctx context.Context) ([]byte, error) {
	data, status, err := d.SendCommand(ctx, BuildReadTOC(), tocLen, tocTimeout)
	if err != nil {
		return nil, fmt.Errorf("scsi: READ TOC: %w", err)
	}
	if status != StatusPassed {
		return nil, fmt.Errorf("%w: READ TOC status %d", ErrCommandFailed, status)
	}
	return data, nil
}

// ReadCDFrames reads numFrames raw audio sectors starting at startLBA
func (d *Device) ReadCDFrames(ctx context.Context, startLBA, numFrames int) ([]byte, error) {
	want := numFrames * FrameSize
	data, status, err := d.SendCommand(ctx, BuildReadCD(startLBA, numFrames), want, readTimeout)
	if err != nil {
		return nil, fmt.Errorf("scsi: READ CD: %w", err)
	}
	if status != StatusPassed {
		return nil, fmt.Errorf("%w: READ CD status %d at LBA %d", ErrCommandFailed, status, startLBA)
	}
	if len(data) != want {
		return nil, fmt.Errorf("%w: READ CD returned %d of %d bytes at LBA %d", ErrShortTransfer, len(data), want, startLBA)
	}
	return data, nil
}
