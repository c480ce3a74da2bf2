// Package output renders checksum results and diagnostics in the line
// formats of the wcrc32sum tool.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/wav"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Encoding selects the byte encoding of rendered text.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	// EncodingUTF16 writes UTF-16LE with a byte order mark, like the
	// Windows console build of wcrc32sum.
	EncodingUTF16
)

// separator closes every report block
const separator = "----------------"

// EAC equivalents of the report sums
var eacNotes = map[string]string{
	checksum.LabelAllSamples:    `EAC: grabbing, "no use..." off`,
	checksum.LabelNoNullSamples: `EAC: grabbing, "no use..." on`,
	checksum.LabelLeftNoNull:    "EAC: sound editor",
}

// Writer renders results to an underlying writer.
type Writer struct {
	closer io.Closer
	w      io.Writer
}

// NewWriter creates a writer. Close must be called to flush UTF-16 output.
func NewWriter(w io.Writer, e Encoding) *Writer {
	if e == EncodingUTF16 {
		tw := transform.NewWriter(w, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
		return &Writer{closer: tw, w: tw}
	}
	return &Writer{w: w}
}

// Close flushes pending output. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}

// Result writes one sum line per CRC, or the report block in report mode.
func (w *Writer) Result(r *checksum.Result) error {
	if r.Mode.Report {
		return w.report(r)
	}
	for _, s := range r.Sums {
		if _, err := io.WriteString(w.w, SumLine(s, r.File)+"\n"); err != nil {
			return fmt.Errorf("output: writing sum failed: %w", err)
		}
	}
	return nil
}

// Printf writes free-form text, for command banners and listings.
func (w *Writer) Printf(format string, args ...any) error {
	_, err := fmt.Fprintf(w.w, format, args...)
	return err
}

func (w *Writer) report(r *checksum.Result) error {
	f := r.Header.Format

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", Label(r.File))
	b.WriteString("WAV header info:\n")
	fmt.Fprintf(&b, "  format: %d\n", f.AudioFormat)
	fmt.Fprintf(&b, "  channels: %d\n", f.Channels)
	fmt.Fprintf(&b, "  sample rate: %d\n", f.SampleRate)
	fmt.Fprintf(&b, "  byte rate: %d\n", f.ByteRate)
	fmt.Fprintf(&b, "  block align: %d\n", f.BlockAlign)
	fmt.Fprintf(&b, "  bits per sample: %d\n", f.BitsPerSample)
	fmt.Fprintf(&b, "RIFF WAV header checked and audio data size is %d bytes\n", r.Header.DataSize)
	fmt.Fprintf(&b, "Used audio data size is %d bytes\n", r.Bytes)
	b.WriteString("CRC32 sums of:\n")
	for _, s := range r.Sums {
		fmt.Fprintf(&b, "  %-31s %s", s.Label+":", s.Hex())
		if note, ok := eacNotes[s.Label]; ok {
			fmt.Fprintf(&b, " (%s)", note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Time elapsed: %d ms\n", r.Elapsed.Milliseconds())
	b.WriteString(separator + "\n")

	if _, err := io.WriteString(w.w, b.String()); err != nil {
		return fmt.Errorf("output: writing report failed: %w", err)
	}
	return nil
}

// SumLine formats one sum as "CRC marker file". The marker is "**" for
// block/all, "*+" for block/no-null, "*-" for block/no-null-blocks and
// "<channel>*" or "<channel>+" for channel sums.
func SumLine(s checksum.Sum, file string) string {
	return s.Hex() + " " + marker(s) + " " + Label(file)
}

func marker(s checksum.Sum) string {
	var suffix string
	switch s.Filter {
	case checksum.FilterNoNullSamples:
		suffix = "+"
	case checksum.FilterNoNullBlocks:
		suffix = "-"
	default:
		suffix = "*"
	}
	if s.Channel == checksum.BlockChannel {
		return "*" + suffix
	}
	return fmt.Sprintf("%d%s", s.Channel, suffix)
}

// Label normalises a file label to NFC so decomposed file names (as
// returned by some file systems) print like their composed form.
func Label(file string) string {
	return norm.NFC.String(file)
}

// Diagnostic returns the one-line message printed on stderr when a file
// fails, "*" prefixed. What the header or data check found follows the
// file in parentheses.
func Diagnostic(file string, err error) string {
	msg := err.Error()
	for _, d := range []struct {
		err error
		msg string
	}{
		{wav.ErrNotRIFF, "Not a RIFF file"},
		{wav.ErrNotWAVE, "Not a RIFF WAV file"},
		{wav.ErrMissingFmtChunk, "Missing WAV format chunk"},
		{wav.ErrUnsupportedFmtChunkSize, "Bad WAV format chunk size"},
		{wav.ErrInconsistentFormat, "Inconsistent WAV format"},
		{wav.ErrNotPCM, "Not a RIFF PCM WAV file"},
		{wav.ErrMissingDataChunk, "Missing WAV data chunk"},
		{wav.ErrTruncatedStream, "Truncated stream"},
		{wav.ErrDataNotAligned, "Data not aligned"},
		{wav.ErrCorruptedFile, "Corrupted file"},
		{checksum.ErrInvalidChannelSelector, "Bad channel option"},
		{checksum.ErrInvalidMode, "Bad mode"},
	} {
		if errors.Is(err, d.err) {
			msg = d.msg
			break
		}
	}
	if file != "" {
		msg += ": " + Label(file)
	}
	if d := detail(err); d != "" {
		msg += " (" + d + ")"
	}
	return "*" + msg
}

// detail returns what the header or data check found, if err carries it
func detail(err error) string {
	var herr *wav.HeaderError
	if errors.As(err, &herr) {
		if herr.Detail == "" {
			return herr.Step
		}
		return herr.Step + ": " + herr.Detail
	}
	var derr *wav.DataError
	if errors.As(err, &derr) {
		return fmt.Sprintf("read %d of %d bytes at data offset %d", derr.Read, derr.Requested, derr.Offset)
	}
	return ""
}
