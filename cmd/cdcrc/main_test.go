package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/binaryphile/wavcrc32/internal/cdda"
	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/crc"
	"github.com/binaryphile/wavcrc32/internal/musicbrainz"
	"github.com/binaryphile/wavcrc32/internal/output"
	"github.com/binaryphile/wavcrc32/internal/scsi"
	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDrive serves sectors filled with a byte derived from their LBA. LBAs
// in bad always fail.
type fakeDrive struct {
	bad map[int]bool
}

func (d fakeDrive) ReadCDFrames(ctx context.Context, startLBA, numFrames int) ([]byte, error) {
	if d.bad[startLBA] {
		return nil, errors.New("medium error")
	}
	return sectors(startLBA, numFrames), nil
}

func sectors(start, n int) []byte {
	var b []byte
	for lba := start; lba < start+n; lba++ {
		b = append(b, bytes.Repeat([]byte{byte(lba + 1)}, scsi.FrameSize)...)
	}
	return b
}

var testTOC = cdda.TOC{
	FirstTrack: 1,
	LastTrack:  3,
	LeadoutLBA: 7,
	Tracks: []cdda.Track{
		{Num: 1, LBA: 0},
		{Num: 2, LBA: 3, Type: cdda.TrackTypeData},
		{Num: 3, LBA: 5},
	},
}

func newSession(mode checksum.Mode) (s *session, stdout, stderr *bytes.Buffer) {
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	s = &session{
		chunk:   2,
		mode:    mode,
		retries: 1,
		stderr:  stderr,
		w:       output.NewWriter(stdout, output.EncodingUTF8),
	}
	return
}

func TestChecksumTracks(t *testing.T) {
	s, stdout, stderr := newSession(checksum.BlockMode(checksum.FilterAllSamples))

	o := s.checksumTracks(context.Background(), fakeDrive{}, testTOC)
	assert.Equal(t, checksum.OutcomeOK, o)
	assert.Equal(t, fmt.Sprintf("%08X ** track01.wav\n%08X ** track03.wav\n",
		crc.Checksum(sectors(0, 3)), crc.Checksum(sectors(5, 2))), stdout.String())
	assert.Equal(t, "Track 2: Skipping (data track)\n", stderr.String())
}

func TestChecksumTracks_Selection(t *testing.T) {
	s, stdout, stderr := newSession(checksum.ChannelMode(checksum.FilterNoNullSamples, 1))
	s.tracks = map[int]bool{3: true}

	o := s.checksumTracks(context.Background(), fakeDrive{}, testTOC)
	assert.Equal(t, checksum.OutcomeOK, o)
	assert.Empty(t, stderr.String())

	// Right channel samples are the second half of each 4 byte block
	var right []byte
	data := sectors(5, 2)
	for i := 0; i < len(data); i += 4 {
		right = append(right, data[i+2:i+4]...)
	}
	assert.Equal(t, fmt.Sprintf("%08X 1+ track03.wav\n", crc.Checksum(right)), stdout.String())
}

func TestChecksumTracks_ReadErrors(t *testing.T) {
	s, stdout, stderr := newSession(checksum.BlockMode(checksum.FilterAllSamples))

	o := s.checksumTracks(context.Background(), fakeDrive{bad: map[int]bool{2: true}}, testTOC)
	assert.Equal(t, checksum.OutcomeMalformed, o)
	assert.Equal(t, fmt.Sprintf("%08X ** track03.wav\n", crc.Checksum(sectors(5, 2))), stdout.String())
	assert.Contains(t, stderr.String(), "*Too many read errors: track01.wav\n")
	assert.Equal(t, exitMalformed, exitCode(o))
}

func TestChecksumTracks_ChannelOutOfRange(t *testing.T) {
	s, stdout, stderr := newSession(checksum.ChannelMode(checksum.FilterAllSamples, 2))
	s.tracks = map[int]bool{1: true}

	o := s.checksumTracks(context.Background(), fakeDrive{}, testTOC)
	assert.Equal(t, checksum.OutcomeConfig, o)
	assert.Empty(t, stdout.String())
	assert.Equal(t, "*Bad channel option: track01.wav\n", stderr.String())
	assert.Equal(t, exitConfig, exitCode(o))
}

func TestChecksumTracks_Report(t *testing.T) {
	s, stdout, _ := newSession(checksum.ReportMode())
	s.tracks = map[int]bool{1: true}

	require.Equal(t, checksum.OutcomeOK, s.checksumTracks(context.Background(), fakeDrive{}, testTOC))
	assert.Contains(t, stdout.String(), "File: track01.wav\n")
	assert.Contains(t, stdout.String(), fmt.Sprintf("RIFF WAV header checked and audio data size is %d bytes\n", 3*scsi.FrameSize))
	assert.Contains(t, stdout.String(), "  sample rate: 44100\n")
}

func TestChecksumTracks_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, stdout, _ := newSession(checksum.BlockMode(checksum.FilterAllSamples))

	assert.Equal(t, checksum.OutcomeMalformed, s.checksumTracks(ctx, fakeDrive{}, testTOC))
	assert.Empty(t, stdout.String())
}

func TestBuildMode(t *testing.T) {
	for _, test := range []struct {
		report, noNull, noNullBlocks bool
		channels                     string
		want                         checksum.Mode
	}{
		{want: checksum.BlockMode(checksum.FilterAllSamples)},
		{noNull: true, want: checksum.BlockMode(checksum.FilterNoNullSamples)},
		{noNullBlocks: true, want: checksum.BlockMode(checksum.FilterNoNullBlocks)},
		{channels: "l, R", want: checksum.ChannelMode(checksum.FilterAllSamples, 0, 1)},
		{noNull: true, channels: "3", want: checksum.ChannelMode(checksum.FilterNoNullSamples, 3)},
		{report: true, noNull: true, channels: "1", want: checksum.ReportMode()},
	} {
		m, err := buildMode(test.report, test.noNull, test.noNullBlocks, test.channels)
		require.NoError(t, err)
		assert.Equal(t, test.want, m)
	}

	_, err := buildMode(false, false, false, "x")
	assert.ErrorIs(t, err, checksum.ErrInvalidChannelSelector)
	_, err = buildMode(false, false, false, "-1")
	assert.ErrorIs(t, err, checksum.ErrInvalidChannelSelector)
	_, err = buildMode(false, true, true, "")
	assert.ErrorIs(t, err, checksum.ErrInvalidMode)
	_, err = buildMode(false, false, true, "0")
	assert.ErrorIs(t, err, checksum.ErrInvalidMode)
}

func TestParseTrackList(t *testing.T) {
	assert.Nil(t, parseTrackList(""))
	assert.Equal(t, map[int]bool{1: true, 3: true, 5: true}, parseTrackList("1, 3,x,5"))
}

func TestParseID(t *testing.T) {
	id, err := parseID("0x0e8d")
	require.NoError(t, err)
	assert.Equal(t, gousb.ID(0x0e8d), id)

	id, err = parseID("")
	require.NoError(t, err)
	assert.Equal(t, gousb.ID(0), id)

	_, err = parseID("0xzz")
	assert.Error(t, err)
}

func TestPrintTOC(t *testing.T) {
	var buf bytes.Buffer
	printTOC(output.NewWriter(&buf, output.EncodingUTF8), testTOC)
	assert.Contains(t, buf.String(), "     2     data          3          2       0.0s\n")
	assert.Contains(t, buf.String(), "Lead-out        -          7\n")
}

type fakeLookup struct {
	releases []musicbrainz.Release
	err      error
}

func (l fakeLookup) LookupDisc(ctx context.Context, discID string, trackCount int) ([]musicbrainz.Release, error) {
	return l.releases, l.err
}

func TestPrintRelease(t *testing.T) {
	var buf bytes.Buffer
	w := output.NewWriter(&buf, output.EncodingUTF8)
	err := printRelease(context.Background(), w, fakeLookup{releases: []musicbrainz.Release{
		{
			MBID:   "mbid-1",
			Title:  "Disc",
			Artist: "Band",
			Year:   1999,
			Tracks: []musicbrainz.Track{{Num: 1, Title: "First"}, {Num: 2, Title: "Second"}},
		},
		{MBID: "mbid-2"},
	}}, "id", 2)
	require.NoError(t, err)
	assert.Equal(t, "Release: Band - Disc (1999) [mbid-1]\n  01  First\n  02  Second\n(1 other releases share this disc ID)\n", buf.String())

	buf.Reset()
	err = printRelease(context.Background(), w, fakeLookup{releases: []musicbrainz.Release{{
		Title:       "Mix",
		Artist:      "Various Artists",
		Year:        2001,
		Compilation: true,
		Tracks:      []musicbrainz.Track{{Num: 1, Title: "Song", Artist: "Someone"}},
	}}}, "id", 1)
	require.NoError(t, err)
	assert.Equal(t, "Release: Various Artists - Mix (2001) []\n  01  Someone - Song\n", buf.String())

	buf.Reset()
	err = printRelease(context.Background(), w, fakeLookup{releases: []musicbrainz.Release{{
		Title:  "Short",
		Artist: "Band",
		Tracks: []musicbrainz.Track{{Num: 1, Title: "Only"}},
	}}}, "id", 2)
	require.NoError(t, err)
	assert.Equal(t, "Release: Band - Short (0) []\n  01  Only\n  02  (unknown)\n", buf.String())
}

func TestPrintRelease_Errors(t *testing.T) {
	w := output.NewWriter(&bytes.Buffer{}, output.EncodingUTF8)
	assert.ErrorIs(t, printRelease(context.Background(), w, fakeLookup{}, "id", 1), musicbrainz.ErrNoRelease)

	boom := errors.New("boom")
	assert.ErrorIs(t, printRelease(context.Background(), w, fakeLookup{err: boom}, "id", 1), boom)
}
