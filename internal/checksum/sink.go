package checksum

import (
	"fmt"

	"github.com/binaryphile/wavcrc32/internal/crc"
	"github.com/binaryphile/wavcrc32/internal/wav"
)

// Descriptive labels of the report sums
const (
	LabelAllSamples    = "all channels / all samples"
	LabelNoNullSamples = "all channels / no null samples"
	LabelLeftNoNull    = "left channel / no null samples"
)

// BlockChannel is the Sum.Channel value of a block granularity sum.
const BlockChannel = -1

// Sum is one finalised CRC.
type Sum struct {
	Channel int // BlockChannel, or the channel index
	Filter  Filter
	Label   string // set in report mode
	CRC     uint32
}

// Hex renders the CRC as 8 upper-case hex digits
func (s Sum) Hex() string {
	return fmt.Sprintf("%08X", s.CRC)
}

// sink consumes whole sample blocks. Every slice passed to consume has a
// length that is a multiple of the block align.
type sink interface {
	consume(blocks []byte)
	sums() []Sum
}

type blockSink struct {
	acc    *crc.Accumulator
	align  int
	bps    int
	filter Filter
}

func newBlockSink(t *crc.Table, f wav.Format, filter Filter) *blockSink {
	return &blockSink{
		acc:    crc.NewAccumulator(t),
		align:  int(f.BlockAlign),
		bps:    f.BytesPerSample(),
		filter: filter,
	}
}

func (s *blockSink) consume(b []byte) {
	switch s.filter {
	case FilterNoNullSamples:
		// Channels are interleaved sample by sample, so every bps-wide
		// slice is one sample of one channel.
		for i := 0; i < len(b); i += s.bps {
			if sample := b[i : i+s.bps]; !isNull(sample) {
				s.acc.Write(sample)
			}
		}
	case FilterNoNullBlocks:
		for i := 0; i < len(b); i += s.align {
			if block := b[i : i+s.align]; !isNull(block) {
				s.acc.Write(block)
			}
		}
	default:
		s.acc.Write(b)
	}
}

func (s *blockSink) sums() []Sum {
	return []Sum{{Channel: BlockChannel, Filter: s.filter, CRC: s.acc.Sum32()}}
}

type channelSink struct {
	accs     []*crc.Accumulator // indexed by channel, nil when not selected
	align    int
	bps      int
	filter   Filter
	selected []int
}

func newChannelSink(t *crc.Table, f wav.Format, filter Filter, channels []int) *channelSink {
	s := &channelSink{
		accs:     make([]*crc.Accumulator, f.Channels),
		align:    int(f.BlockAlign),
		bps:      f.BytesPerSample(),
		filter:   filter,
		selected: channels,
	}
	for _, c := range channels {
		s.accs[c] = crc.NewAccumulator(t)
	}
	return s
}

func (s *channelSink) consume(b []byte) {
	skipNull := s.filter == FilterNoNullSamples
	for off := 0; off < len(b); off += s.align {
		for c, acc := range s.accs {
			if acc == nil {
				continue
			}
			start := off + c*s.bps
			sample := b[start : start+s.bps]
			if skipNull && isNull(sample) {
				continue
			}
			acc.Write(sample)
		}
	}
}

func (s *channelSink) sums() []Sum {
	sums := make([]Sum, 0, len(s.selected))
	for _, c := range s.selected {
		sums = append(sums, Sum{Channel: c, Filter: s.filter, CRC: s.accs[c].Sum32()})
	}
	return sums
}

// multiSink fans blocks out to several sinks and labels their sums.
type multiSink struct {
	labels []string
	sinks  []sink
}

func (s *multiSink) consume(b []byte) {
	for _, sk := range s.sinks {
		sk.consume(b)
	}
}

func (s *multiSink) sums() (sums []Sum) {
	for i, sk := range s.sinks {
		for _, sum := range sk.sums() {
			if i < len(s.labels) {
				sum.Label = s.labels[i]
			}
			sums = append(sums, sum)
		}
	}
	return
}

// newSink builds the sink for a validated mode.
func newSink(t *crc.Table, f wav.Format, m Mode) sink {
	if m.Report {
		return &multiSink{
			labels: []string{LabelAllSamples, LabelNoNullSamples, LabelLeftNoNull},
			sinks: []sink{
				newBlockSink(t, f, FilterAllSamples),
				newBlockSink(t, f, FilterNoNullSamples),
				newChannelSink(t, f, FilterNoNullSamples, []int{0}),
			},
		}
	}
	if m.Granularity == GranularityChannel {
		return newChannelSink(t, f, m.Filter, m.selected())
	}
	return newBlockSink(t, f, m.Filter)
}

func isNull(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
