package cdda

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/asticode/go-astikit"
)

var ErrTOCTooShort = errors.New("cdda: TOC too short")

// Track numbers with a special meaning in a TOC response
const leadoutTrack = 0xAA

// controlData is the Q sub-channel control bit marking a data track
const controlData = 0x04

// TrackType indicates whether a track is audio or data
type TrackType int

const (
	TrackTypeAudio TrackType = iota
	TrackTypeData
)

func (t TrackType) String() string {
	if t == TrackTypeData {
		return "data"
	}
	return "audio"
}

// Track is one TOC entry
type Track struct {
	Num  int
	LBA  int
	Type TrackType
}

// IsAudio returns true if this is an audio track
func (t Track) IsAudio() bool {
	return t.Type == TrackTypeAudio
}

// TOC is a CD table of contents
type TOC struct {
	FirstTrack int
	LastTrack  int
	LeadoutLBA int
	Tracks     []Track
}

// ParseTOC parses the response to READ TOC format 0 with LBA addressing.
// Entries whose track number lies outside the first/last range are skipped
// and parsing stops at the lead-out entry.
func ParseTOC(raw []byte) (toc TOC, err error) {
	if len(raw) < 4 {
		err = fmt.Errorf("%w: %d bytes", ErrTOCTooShort, len(raw))
		return
	}

	// The length field counts the bytes following it
	end := int(binary.BigEndian.Uint16(raw[0:2])) + 2
	if end > len(raw) {
		end = len(raw)
	}
	i := astikit.NewBytesIterator(raw[:end])
	i.Skip(2)

	var b []byte
	if b, err = i.NextBytes(2); err != nil {
		err = fmt.Errorf("cdda: fetching track range failed: %w", err)
		return
	}
	toc.FirstTrack, toc.LastTrack = int(b[0]), int(b[1])

	// Entries are reserved, ADR/control, track number, reserved, LBA
	for i.Len()-i.Offset() >= 8 {
		if b, err = i.NextBytes(8); err != nil {
			err = fmt.Errorf("cdda: fetching TOC entry failed: %w", err)
			return
		}
		num := int(b[2])
		lba := int(binary.BigEndian.Uint32(b[4:8]))

		if num == leadoutTrack {
			toc.LeadoutLBA = lba
			break
		}
		if num < toc.FirstTrack || num > toc.LastTrack {
			continue
		}

		t := Track{Num: num, LBA: lba}
		if b[1]&controlData != 0 {
			t.Type = TrackTypeData
		}
		toc.Tracks = append(toc.Tracks, t)
	}
	return
}

// End returns the LBA following the last frame of the i-th track: the start
// of the next track, or the lead-out for the last one.
func (toc TOC) End(i int) int {
	if i+1 < len(toc.Tracks) {
		return toc.Tracks[i+1].LBA
	}
	return toc.LeadoutLBA
}

// Frames returns the length of the i-th track in frames
func (toc TOC) Frames(i int) int {
	return toc.End(i) - toc.Tracks[i].LBA
}

// Duration returns the length of the i-th track in seconds
func (toc TOC) Duration(i int) float64 {
	return float64(toc.Frames(i)) / FramesPerSecond
}
