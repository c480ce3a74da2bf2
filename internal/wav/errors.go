package wav

import (
	"errors"
	"fmt"
)

// Errors reported for malformed or truncated input. Every error returned by
// this package (and by the checksum streaming loop for data-chunk problems)
// wraps exactly one of these.
var (
	ErrNotRIFF                 = errors.New("wav: not a RIFF file")
	ErrNotWAVE                 = errors.New("wav: not a RIFF WAV file")
	ErrMissingFmtChunk         = errors.New("wav: missing WAV format chunk")
	ErrUnsupportedFmtChunkSize = errors.New("wav: bad WAV format chunk size")
	ErrInconsistentFormat      = errors.New("wav: inconsistent WAV format")
	ErrNotPCM                  = errors.New("wav: not a RIFF PCM WAV file")
	ErrMissingDataChunk        = errors.New("wav: missing WAV data chunk")
	ErrTruncatedStream         = errors.New("wav: truncated stream")
	ErrDataNotAligned          = errors.New("wav: data not aligned")
	ErrCorruptedFile           = errors.New("wav: corrupted file")
)

// HeaderError describes which validation step failed and what was expected
// there. Expected and Found are zero when the step has no single expected
// value.
type HeaderError struct {
	Step     string
	Expected uint32
	Found    uint32
	Detail   string
	Err      error
}

func (e *HeaderError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Err, e.Step, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Step)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// DataError describes a short read inside the data chunk.
type DataError struct {
	Offset    uint64 // bytes of PCM data consumed before the failing read
	Requested int
	Read      int
	Err       error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: read %d of %d bytes at data offset %d", e.Err, e.Read, e.Requested, e.Offset)
}

func (e *DataError) Unwrap() error { return e.Err }
