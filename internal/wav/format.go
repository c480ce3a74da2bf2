// Package wav reads the canonical 44-byte RIFF/WAVE header that precedes the
// PCM data of a WAV file: RIFF, WAVE, a 16-byte "fmt " chunk and the "data"
// chunk header, in that order and with nothing in between.
package wav

import (
	"encoding/binary"
	"fmt"

	"github.com/asticode/go-astikit"
)

// FormatPCM is the audio format tag of uncompressed linear PCM.
const FormatPCM = 1

// Format is the content of a canonical 16-byte "fmt " chunk.
type Format struct {
	AudioFormat   uint16 // 1 PCM
	Channels      uint16 // 1 mono, 2 stereo, ...
	SampleRate    uint32 // 44100, ...
	ByteRate      uint32 // SampleRate * BlockAlign
	BlockAlign    uint16 // Channels * BitsPerSample / 8
	BitsPerSample uint16 // 8, 16, 24, ...
}

// NewPCMFormat returns a PCM format with the derived fields filled in.
func NewPCMFormat(channels uint16, sampleRate uint32, bitsPerSample uint16) Format {
	blockAlign := channels * (bitsPerSample / 8)
	return Format{
		AudioFormat:   FormatPCM,
		Channels:      channels,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
	}
}

// BytesPerSample is the width of one sample of one channel.
func (f Format) BytesPerSample() int {
	return int(f.BitsPerSample / 8)
}

// Validate checks the format consistency rules, then the PCM tag.
func (f Format) Validate() error {
	if f.BitsPerSample == 0 || f.BitsPerSample%8 != 0 {
		return &HeaderError{
			Step:   "fmt chunk",
			Detail: fmt.Sprintf("bits per sample %d is not a positive multiple of 8", f.BitsPerSample),
			Err:    ErrInconsistentFormat,
		}
	}
	if f.Channels == 0 {
		return &HeaderError{Step: "fmt chunk", Detail: "no channels", Err: ErrInconsistentFormat}
	}
	if want := uint32(f.BytesPerSample()) * uint32(f.Channels); uint32(f.BlockAlign) != want {
		return &HeaderError{
			Step:     "fmt chunk",
			Detail:   fmt.Sprintf("block align %d, want %d", f.BlockAlign, want),
			Expected: want,
			Found:    uint32(f.BlockAlign),
			Err:      ErrInconsistentFormat,
		}
	}
	if want := uint64(f.SampleRate) * uint64(f.BlockAlign); uint64(f.ByteRate) != want {
		return &HeaderError{
			Step:   "fmt chunk",
			Detail: fmt.Sprintf("byte rate %d, want %d", f.ByteRate, want),
			Found:  f.ByteRate,
			Err:    ErrInconsistentFormat,
		}
	}
	if f.AudioFormat != FormatPCM {
		return &HeaderError{
			Step:     "fmt chunk",
			Detail:   fmt.Sprintf("audio format %d", f.AudioFormat),
			Expected: FormatPCM,
			Found:    uint32(f.AudioFormat),
			Err:      ErrNotPCM,
		}
	}
	return nil
}

// parseFormat decodes the little-endian fields of a 16-byte fmt chunk.
func parseFormat(i *astikit.BytesIterator) (f Format, err error) {
	u16 := func(name string) (v uint16, err error) {
		var bs []byte
		if bs, err = i.NextBytes(2); err != nil {
			err = fmt.Errorf("%w: fetching %s failed: %w", ErrTruncatedStream, name, err)
			return
		}
		v = binary.LittleEndian.Uint16(bs)
		return
	}
	u32 := func(name string) (v uint32, err error) {
		var bs []byte
		if bs, err = i.NextBytes(4); err != nil {
			err = fmt.Errorf("%w: fetching %s failed: %w", ErrTruncatedStream, name, err)
			return
		}
		v = binary.LittleEndian.Uint32(bs)
		return
	}

	if f.AudioFormat, err = u16("audio format"); err != nil {
		return
	}
	if f.Channels, err = u16("channel count"); err != nil {
		return
	}
	if f.SampleRate, err = u32("sample rate"); err != nil {
		return
	}
	if f.ByteRate, err = u32("byte rate"); err != nil {
		return
	}
	if f.BlockAlign, err = u16("block align"); err != nil {
		return
	}
	if f.BitsPerSample, err = u16("bits per sample"); err != nil {
		return
	}
	return
}
