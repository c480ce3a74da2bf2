// Package scsi drives a USB CD drive through the mass storage bulk-only
// transport: SCSI command blocks wrapped in CBWs, answered by CSWs.
package scsi

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
)

// Bulk-only transport constants
const (
	CBWSignature = 0x43425355 // "USBC" little-endian
	CSWSignature = 0x53425355 // "USBS" little-endian
	CBWSize      = 31
	CSWSize      = 13
	maxCDBSize   = 16
)

// Direction constants for CBW
const (
	DirectionOut = 0x00 // Host to device
	DirectionIn  = 0x80 // Device to host
)

// CSW status values
const (
	StatusPassed     = 0x00
	StatusFailed     = 0x01
	StatusPhaseError = 0x02
)

var (
	ErrCSWTooShort     = errors.New("scsi: CSW too short")
	ErrInvalidCSW      = errors.New("scsi: invalid CSW signature")
	ErrCommandFailed   = errors.New("scsi: command failed")
	ErrShortTransfer   = errors.New("scsi: short transfer")
	ErrDeviceNotFound  = errors.New("scsi: no USB CD drive found")
	ErrNoBulkEndpoints = errors.New("scsi: could not find USB bulk endpoints")
)

// CSW is a command status wrapper
type CSW struct {
	Tag     uint32
	Residue uint32
	Status  byte
}

// BuildCBW wraps a CDB in a 31 byte command block wrapper for LUN 0. CDBs
// longer than 16 bytes are truncated.
func BuildCBW(tag uint32, dataLen uint32, direction byte, cdb []byte) []byte {
	if len(cdb) > maxCDBSize {
		cdb = cdb[:maxCDBSize]
	}
	cbw := make([]byte, 0, CBWSize)
	cbw = binary.LittleEndian.AppendUint32(cbw, CBWSignature)
	cbw = binary.LittleEndian.AppendUint32(cbw, tag)
	cbw = binary.LittleEndian.AppendUint32(cbw, dataLen)
	cbw = append(cbw, direction, 0, byte(len(cdb)))
	cbw = append(cbw, cdb...)
	return cbw[:CBWSize]
}

// ParseCSW parses a 13 byte command status wrapper
func ParseCSW(data []byte) (csw CSW, err error) {
	if len(data) < CSWSize {
		err = fmt.Errorf("%w: %d bytes", ErrCSWTooShort, len(data))
		return
	}

	i := astikit.NewBytesIterator(data)
	var b []byte
	if b, err = i.NextBytes(4); err != nil {
		err = fmt.Errorf("scsi: fetching CSW signature failed: %w", err)
		return
	}
	if sig := binary.LittleEndian.Uint32(b); sig != CSWSignature {
		err = fmt.Errorf("%w: 0x%08x", ErrInvalidCSW, sig)
		return
	}
	if b, err = i.NextBytes(8); err != nil {
		err = fmt.Errorf("scsi: fetching CSW tag and residue failed: %w", err)
		return
	}
	csw.Tag = binary.LittleEndian.Uint32(b[0:4])
	csw.Residue = binary.LittleEndian.Uint32(b[4:8])
	if csw.Status, err = i.NextByte(); err != nil {
		err = fmt.Errorf("scsi: fetching CSW status failed: %w", err)
		return
	}
	return
}
