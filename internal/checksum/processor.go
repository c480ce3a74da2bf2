// Package checksum computes EAC-compatible CRC-32 sums over the PCM data of
// WAV streams.
package checksum

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/binaryphile/wavcrc32/internal/crc"
	"github.com/binaryphile/wavcrc32/internal/wav"
)

// DefaultBlockCount is the number of sample blocks read per buffer fill.
const DefaultBlockCount = 4096

// Result is the outcome of one successful pass over a file.
type Result struct {
	File    string
	Mode    Mode
	Header  wav.Header
	Sums    []Sum
	Bytes   uint64 // PCM bytes consumed
	Elapsed time.Duration
}

// Processor runs checksum passes. It holds no per-file state, so one
// processor may serve concurrent passes.
type Processor struct {
	blockCount int
	clock      func() time.Time
	l          astikit.CompleteLogger
	table      *crc.Table
}

// NewProcessor creates a processor
func NewProcessor(opts ...func(*Processor)) *Processor {
	p := &Processor{
		blockCount: DefaultBlockCount,
		clock:      time.Now,
		l:          astikit.AdaptStdLogger(nil),
		table:      crc.IEEETable(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessorOptBlockCount returns the option to set the number of sample
// blocks per read. Values below 1 are ignored.
func ProcessorOptBlockCount(n int) func(*Processor) {
	return func(p *Processor) {
		if n > 0 {
			p.blockCount = n
		}
	}
}

// ProcessorOptClock returns the option to set the clock used for elapsed time
func ProcessorOptClock(fn func() time.Time) func(*Processor) {
	return func(p *Processor) {
		p.clock = fn
	}
}

// ProcessorOptLogger returns the option to set the logger
func ProcessorOptLogger(l astikit.StdLogger) func(*Processor) {
	return func(p *Processor) {
		p.l = astikit.AdaptStdLogger(l)
	}
}

// ProcessorOptTable returns the option to set the CRC lookup table
func ProcessorOptTable(t *crc.Table) func(*Processor) {
	return func(p *Processor) {
		p.table = t
	}
}

// Process validates the WAV header read from r, then checksums its data.
// file only labels the result. On error no result is returned.
func (p *Processor) Process(ctx context.Context, r io.Reader, file string, m Mode) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	h, err := wav.ReadHeader(r)
	if err != nil {
		return nil, fmt.Errorf("checksum: reading header of %s failed: %w", file, err)
	}
	p.l.Debugf("checksum: %s: format %d, %d channels, %d Hz, %d bits, data size %d",
		file, h.Format.AudioFormat, h.Format.Channels, h.Format.SampleRate, h.Format.BitsPerSample, h.DataSize)

	return p.process(ctx, r, file, h, m)
}

// ProcessData checksums PCM data described by an already known header, r
// being positioned on the first data byte.
func (p *Processor) ProcessData(ctx context.Context, r io.Reader, file string, h wav.Header, m Mode) (*Result, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := h.Format.Validate(); err != nil {
		return nil, fmt.Errorf("checksum: %s: %w", file, err)
	}
	return p.process(ctx, r, file, h, m)
}

func (p *Processor) process(ctx context.Context, r io.Reader, file string, h wav.Header, m Mode) (*Result, error) {
	if err := m.validateFor(h.Format); err != nil {
		return nil, err
	}

	s := newSink(p.table, h.Format, m)
	start := p.clock()
	n, err := p.stream(ctx, r, h, s.consume)
	if err != nil {
		return nil, fmt.Errorf("checksum: reading data of %s failed: %w", file, err)
	}

	res := &Result{
		File:    file,
		Mode:    m,
		Header:  h,
		Sums:    s.sums(),
		Bytes:   n,
		Elapsed: p.clock().Sub(start),
	}
	p.l.Debugf("checksum: %s: %s over %d bytes in %s", file, m, n, res.Elapsed)
	return res, nil
}

// stream reads the data chunk in buffers of whole sample blocks and hands
// each buffer to fn. With an unknown data size it reads until end of stream.
func (p *Processor) stream(ctx context.Context, r io.Reader, h wav.Header, fn func([]byte)) (total uint64, err error) {
	align := int(h.Format.BlockAlign)
	buf := make([]byte, p.blockCount*align)
	remaining := uint64(h.DataSize)

	for {
		// Check ctx error
		if err = ctx.Err(); err != nil {
			return
		}

		want := len(buf)
		if h.SizeKnown() {
			if remaining == 0 {
				return
			}
			if remaining < uint64(want) {
				want = int(remaining)
			}
		}

		var n int
		n, err = io.ReadFull(r, buf[:want])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}
		err = nil

		if n < want {
			if h.SizeKnown() {
				err = &wav.DataError{Offset: total, Requested: want, Read: n, Err: wav.ErrCorruptedFile}
				return
			}
			if n%align != 0 {
				err = &wav.DataError{Offset: total, Requested: want, Read: n, Err: wav.ErrDataNotAligned}
				return
			}
			fn(buf[:n])
			total += uint64(n)
			return
		}

		fn(buf[:n])
		total += uint64(n)
		if h.SizeKnown() {
			remaining -= uint64(n)
		}
	}
}
