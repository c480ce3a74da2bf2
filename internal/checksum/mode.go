package checksum

import (
	"errors"
	"fmt"
	"sort"

	"github.com/binaryphile/wavcrc32/internal/wav"
)

// Configuration errors. They are reported before (or instead of) consuming
// sample data and never indicate a malformed file.
var (
	ErrInvalidChannelSelector = errors.New("checksum: invalid channel selector")
	ErrInvalidMode            = errors.New("checksum: invalid mode")
)

// Granularity selects what a running CRC covers.
type Granularity int

const (
	// GranularityBlock hashes all channels of a sample block into one CRC.
	GranularityBlock Granularity = iota
	// GranularityChannel keeps one CRC per selected channel.
	GranularityChannel
)

// Filter selects which samples are hashed.
type Filter int

const (
	FilterAllSamples Filter = iota
	// FilterNoNullSamples skips samples whose bytes are all zero.
	FilterNoNullSamples
	// FilterNoNullBlocks skips sample blocks whose bytes are all zero.
	// Block granularity only.
	FilterNoNullBlocks
)

func (f Filter) String() string {
	switch f {
	case FilterAllSamples:
		return "all"
	case FilterNoNullSamples:
		return "no-null"
	case FilterNoNullBlocks:
		return "no-null-blocks"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// Mode is the accumulation policy for one file.
type Mode struct {
	Granularity Granularity
	Filter      Filter
	// Channels lists the channel indexes hashed in channel granularity.
	// Order and duplicates do not matter.
	Channels []int
	// Report computes block/all, block/no-null and channel 0/no-null in one
	// pass, ignoring every other field.
	Report bool
}

// BlockMode returns a block granularity mode.
func BlockMode(f Filter) Mode {
	return Mode{Granularity: GranularityBlock, Filter: f}
}

// ChannelMode returns a channel granularity mode for the given channels.
func ChannelMode(f Filter, channels ...int) Mode {
	return Mode{Granularity: GranularityChannel, Filter: f, Channels: channels}
}

// ReportMode returns the report mode.
func ReportMode() Mode {
	return Mode{Report: true}
}

func (m Mode) String() string {
	switch {
	case m.Report:
		return "report"
	case m.Granularity == GranularityChannel:
		return fmt.Sprintf("channel%v/%s", m.selected(), m.Filter)
	default:
		return "block/" + m.Filter.String()
	}
}

// Validate checks the mode on its own, without any file format.
func (m Mode) Validate() error {
	if m.Report {
		return nil
	}
	switch m.Filter {
	case FilterAllSamples, FilterNoNullSamples:
	case FilterNoNullBlocks:
		if m.Granularity != GranularityBlock {
			return fmt.Errorf("%w: %s filter needs block granularity", ErrInvalidMode, m.Filter)
		}
	default:
		return fmt.Errorf("%w: unknown filter %d", ErrInvalidMode, int(m.Filter))
	}
	switch m.Granularity {
	case GranularityBlock:
	case GranularityChannel:
		if len(m.Channels) == 0 {
			return fmt.Errorf("%w: no channel selected", ErrInvalidMode)
		}
		for _, c := range m.Channels {
			if c < 0 {
				return fmt.Errorf("%w: channel %d", ErrInvalidChannelSelector, c)
			}
		}
	default:
		return fmt.Errorf("%w: unknown granularity %d", ErrInvalidMode, int(m.Granularity))
	}
	return nil
}

// validateFor checks channel selectors against the file's channel count.
func (m Mode) validateFor(f wav.Format) error {
	if m.Report || m.Granularity != GranularityChannel {
		return nil
	}
	for _, c := range m.Channels {
		if c >= int(f.Channels) {
			return fmt.Errorf("%w: channel %d, file has %d channels", ErrInvalidChannelSelector, c, f.Channels)
		}
	}
	return nil
}

// selected returns the sorted, de-duplicated channel selection.
func (m Mode) selected() []int {
	seen := make(map[int]bool, len(m.Channels))
	var cs []int
	for _, c := range m.Channels {
		if !seen[c] {
			seen[c] = true
			cs = append(cs, c)
		}
	}
	sort.Ints(cs)
	return cs
}
