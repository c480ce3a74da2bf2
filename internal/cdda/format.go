// Package cdda describes the audio layout of compact discs: the PCM format
// of red book audio, the table of contents returned by the drive and the
// MusicBrainz disc ID derived from it.
package cdda

import (
	"github.com/binaryphile/wavcrc32/internal/wav"
)

// Frame geometry
const (
	FrameSize       = 2352 // bytes of audio per sector
	FramesPerSecond = 75
	// PregapFrames is the lead-in offset between LBA 0 and the first
	// audio frame on a standard disc.
	PregapFrames = 150
)

// Format is the PCM format of CD audio: 16-bit stereo at 44.1kHz.
var Format = wav.NewPCMFormat(2, 44100, 16)

// Header returns the WAV header describing n frames of CD audio, as a
// ripper would write it.
func Header(frames int) wav.Header {
	size := uint32(frames * FrameSize)
	return wav.Header{
		RIFFSize: 36 + size,
		Format:   Format,
		DataSize: size,
	}
}
