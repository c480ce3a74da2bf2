package scsi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/asticode/go-astikit"
)

// Track reader defaults
const (
	DefaultChunkFrames = 75 // one second of audio per transfer
	DefaultMaxRetries  = 10
	DefaultBackoff     = 100 * time.Millisecond
)

var ErrTooManyReadErrors = errors.New("scsi: too many read errors")

// FrameReader reads raw CD-DA sectors
type FrameReader interface {
	ReadCDFrames(ctx context.Context, startLBA, numFrames int) ([]byte, error)
}

// TrackReader streams the audio sectors of an LBA range as an io.Reader.
// Failed transfers are retried after a back-off; the read fails once a
// chunk has failed more than the allowed number of consecutive times.
type TrackReader struct {
	backoff    time.Duration
	buf        []byte
	chunk      int
	ctx        context.Context
	end        int
	l          astikit.CompleteLogger
	lba        int
	maxRetries int
	progress   func(done, total int)
	src        FrameReader
	start      int
}

// NewTrackReader creates a reader over the frames [start, end)
func NewTrackReader(ctx context.Context, src FrameReader, start, end int, opts ...func(*TrackReader)) *TrackReader {
	r := &TrackReader{
		backoff:    DefaultBackoff,
		chunk:      DefaultChunkFrames,
		ctx:        ctx,
		end:        end,
		l:          astikit.AdaptStdLogger(nil),
		lba:        start,
		maxRetries: DefaultMaxRetries,
		src:        src,
		start:      start,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TrackReaderOptChunk returns the option to set the frames per transfer.
// Values below 1 are ignored.
func TrackReaderOptChunk(frames int) func(*TrackReader) {
	return func(r *TrackReader) {
		if frames > 0 {
			r.chunk = frames
		}
	}
}

// TrackReaderOptRetries returns the option to set the retry policy
func TrackReaderOptRetries(max int, backoff time.Duration) func(*TrackReader) {
	return func(r *TrackReader) {
		r.maxRetries = max
		r.backoff = backoff
	}
}

// TrackReaderOptLogger returns the option to set the logger
func TrackReaderOptLogger(l astikit.StdLogger) func(*TrackReader) {
	return func(r *TrackReader) {
		r.l = astikit.AdaptStdLogger(l)
	}
}

// TrackReaderOptProgress returns the option to set a callback run after
// every successful transfer with the frames read so far and the total.
func TrackReaderOptProgress(fn func(done, total int)) func(*TrackReader) {
	return func(r *TrackReader) {
		r.progress = fn
	}
}

// Read implements io.Reader
func (r *TrackReader) Read(p []byte) (n int, err error) {
	if len(r.buf) == 0 {
		if r.lba >= r.end {
			return 0, io.EOF
		}
		if err = r.fill(); err != nil {
			return 0, err
		}
	}
	n = copy(p, r.buf)
	r.buf = r.buf[n:]
	return
}

func (r *TrackReader) fill() error {
	frames := min(r.chunk, r.end-r.lba)

	for failures := 0; ; {
		data, err := r.src.ReadCDFrames(r.ctx, r.lba, frames)
		if err == nil {
			r.buf = data
			r.lba += frames
			if r.progress != nil {
				r.progress(r.lba-r.start, r.end-r.start)
			}
			return nil
		}
		if r.ctx.Err() != nil {
			return r.ctx.Err()
		}

		failures++
		if failures > r.maxRetries {
			return fmt.Errorf("%w at LBA %d: %w", ErrTooManyReadErrors, r.lba, err)
		}
		r.l.Warnf("scsi: read at LBA %d failed, retrying (%d/%d): %v", r.lba, failures, r.maxRetries, err)

		if err = r.sleep(); err != nil {
			return err
		}
	}
}

func (r *TrackReader) sleep() error {
	if r.backoff <= 0 {
		return nil
	}
	t := time.NewTimer(r.backoff)
	defer t.Stop()
	select {
	case <-r.ctx.Done():
		return r.ctx.Err()
	case <-t.C:
		return nil
	}
}
