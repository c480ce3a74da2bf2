package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astikit"
)

// Chunk tags, read as little-endian uint32
const (
	riffID = 0x46464952 // "RIFF"
	waveID = 0x45564157 // "WAVE"
	fmtID  = 0x20746d66 // "fmt "
	dataID = 0x61746164 // "data"
)

const (
	formatChunkSize = 16

	// HeaderSize is the size of a canonical PCM WAV header.
	HeaderSize = 44
)

// Header is a validated canonical WAV header.
type Header struct {
	RIFFSize uint32 // read, never checked against the stream length
	Format   Format
	DataSize uint32 // 0 means unknown, read until end of stream
}

// SizeKnown reports whether the data chunk declares its length.
// A legitimately empty data chunk cannot be told apart from a streamed one
// and is treated as streamed.
func (h Header) SizeKnown() bool {
	return h.DataSize != 0
}

// ReadHeader reads and validates the header, leaving r positioned at the
// first byte of PCM data. It stops at the first failing step.
func ReadHeader(r io.Reader) (h Header, err error) {
	hr := &headerReader{r: r}

	if err = hr.tag("RIFF chunk ID", riffID, ErrNotRIFF); err != nil {
		return
	}
	if h.RIFFSize, err = hr.uint32("RIFF chunk size"); err != nil {
		return
	}
	if err = hr.tag("RIFF format", waveID, ErrNotWAVE); err != nil {
		return
	}
	if err = hr.tag("fmt chunk ID", fmtID, ErrMissingFmtChunk); err != nil {
		return
	}

	var size uint32
	if size, err = hr.uint32("fmt chunk size"); err != nil {
		return
	}
	if size != formatChunkSize {
		err = &HeaderError{
			Step:     "fmt chunk size",
			Detail:   fmt.Sprintf("%d bytes, only %d supported", size, formatChunkSize),
			Expected: formatChunkSize,
			Found:    size,
			Err:      ErrUnsupportedFmtChunkSize,
		}
		return
	}

	var bs []byte
	if bs, err = hr.next("fmt chunk", formatChunkSize); err != nil {
		return
	}
	if h.Format, err = parseFormat(astikit.NewBytesIterator(bs)); err != nil {
		return
	}
	if err = h.Format.Validate(); err != nil {
		return
	}

	if err = hr.tag("data chunk ID", dataID, ErrMissingDataChunk); err != nil {
		return
	}
	if h.DataSize, err = hr.uint32("data chunk size"); err != nil {
		return
	}
	if h.DataSize%uint32(h.Format.BlockAlign) != 0 {
		err = &HeaderError{
			Step:   "data chunk size",
			Detail: fmt.Sprintf("%d bytes is not a multiple of block align %d", h.DataSize, h.Format.BlockAlign),
			Found:  h.DataSize,
			Err:    ErrDataNotAligned,
		}
		return
	}
	return
}

// AppendHeader appends a canonical header for f and dataSize to dst.
func AppendHeader(dst []byte, f Format, dataSize uint32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, riffID)
	dst = binary.LittleEndian.AppendUint32(dst, HeaderSize-8+dataSize)
	dst = binary.LittleEndian.AppendUint32(dst, waveID)
	dst = binary.LittleEndian.AppendUint32(dst, fmtID)
	dst = binary.LittleEndian.AppendUint32(dst, formatChunkSize)
	dst = binary.LittleEndian.AppendUint16(dst, f.AudioFormat)
	dst = binary.LittleEndian.AppendUint16(dst, f.Channels)
	dst = binary.LittleEndian.AppendUint32(dst, f.SampleRate)
	dst = binary.LittleEndian.AppendUint32(dst, f.ByteRate)
	dst = binary.LittleEndian.AppendUint16(dst, f.BlockAlign)
	dst = binary.LittleEndian.AppendUint16(dst, f.BitsPerSample)
	dst = binary.LittleEndian.AppendUint32(dst, dataID)
	dst = binary.LittleEndian.AppendUint32(dst, dataSize)
	return dst
}

// headerReader reads fixed-size header fields. A short read of any field
// is ErrTruncatedStream.
type headerReader struct {
	r   io.Reader
	buf [formatChunkSize]byte
}

func (hr *headerReader) next(step string, n int) ([]byte, error) {
	b := hr.buf[:n]
	if got, err := io.ReadFull(hr.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &HeaderError{
				Step:   step,
				Detail: fmt.Sprintf("got %d of %d bytes", got, n),
				Err:    ErrTruncatedStream,
			}
		}
		return nil, fmt.Errorf("wav: reading %s failed: %w", step, err)
	}
	return b, nil
}

func (hr *headerReader) uint32(step string) (uint32, error) {
	b, err := hr.next(step, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (hr *headerReader) tag(step string, want uint32, sentinel error) error {
	b, err := hr.next(step, 4)
	if err != nil {
		return err
	}
	if got := binary.LittleEndian.Uint32(b); got != want {
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], want)
		return &HeaderError{
			Step:     step,
			Detail:   fmt.Sprintf("expected %q, found %q", w[:], b),
			Expected: want,
			Found:    got,
			Err:      sentinel,
		}
	}
	return nil
}
