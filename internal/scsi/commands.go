package scsi

import (
	"fmt"
	"strings"

	"github.com/asticode/go-astikit"
)

// SCSI command opcodes
const (
	OpTestUnitReady = 0x00
	OpInquiry       = 0x12
	OpReadTOC       = 0x43
	OpReadCD        = 0xBE
)

// Response sizes requested from the drive
const (
	inquiryLen = 36
	tocLen     = 1020
)

// DeviceTypeCDROM is the INQUIRY peripheral device type of MMC drives
const DeviceTypeCDROM = 0x05

// BuildTestUnitReady returns the 6 byte TEST UNIT READY CDB
func BuildTestUnitReady() []byte {
	return []byte{OpTestUnitReady, 0, 0, 0, 0, 0}
}

// BuildInquiry returns the 6 byte INQUIRY CDB for a standard 36 byte reply
func BuildInquiry() []byte {
	return []byte{OpInquiry, 0, 0, 0, inquiryLen, 0}
}

// BuildReadTOC returns the 10 byte READ TOC CDB, format 0 with LBA
// addressing. MSF addressing (byte 1 = 0x02) would not match what
// cdda.ParseTOC decodes.
func BuildReadTOC() []byte {
	return []byte{
		OpReadTOC,
		0x00, // LBA
		0, 0, 0, 0,
		0, // starting track: all
		byte(tocLen >> 8), byte(tocLen & 0xFF),
		0,
	}
}

// BuildReadCD returns the 12 byte READ CD CDB reading numFrames CD-DA
// sectors of user data from startLBA.
func BuildReadCD(startLBA, numFrames int) []byte {
	return []byte{
		OpReadCD,
		0x04, // expected sector type: CD-DA
		byte(startLBA >> 24),
		byte(startLBA >> 16),
		byte(startLBA >> 8),
		byte(startLBA),
		byte(numFrames >> 16),
		byte(numFrames >> 8),
		byte(numFrames),
		0x10, // user data only
		0, 0,
	}
}

// InquiryData is a parsed standard INQUIRY reply
type InquiryData struct {
	DeviceType byte
	Vendor     string
	Product    string
	Revision   string
}

// IsCDROM returns true if the device reports the MMC device type
func (d InquiryData) IsCDROM() bool {
	return d.DeviceType == DeviceTypeCDROM
}

// ParseInquiry parses a standard 36 byte INQUIRY reply
func ParseInquiry(data []byte) (d InquiryData, err error) {
	if len(data) < inquiryLen {
		err = fmt.Errorf("%w: INQUIRY returned %d bytes", ErrShortTransfer, len(data))
		return
	}

	i := astikit.NewBytesIterator(data)
	var b byte
	if b, err = i.NextByte(); err != nil {
		err = fmt.Errorf("scsi: fetching peripheral device type failed: %w", err)
		return
	}
	d.DeviceType = b & 0x1F

	// Identification strings start at byte 8
	i.Seek(8)
	for _, f := range []struct {
		dst *string
		n   int
	}{
		{&d.Vendor, 8},
		{&d.Product, 16},
		{&d.Revision, 4},
	} {
		var bs []byte
		if bs, err = i.NextBytes(f.n); err != nil {
			err = fmt.Errorf("scsi: fetching identification failed: %w", err)
			return
		}
		*f.dst = strings.TrimRight(string(bs), " ")
	}
	return
}
