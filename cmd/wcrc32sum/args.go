package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/output"
)

// stdinName is the file argument that selects standard input
const stdinName = "-"

// job is one file to checksum with the mode in effect where it appeared.
// A job with bad set only reports that unparsable channel option, in
// command line order.
type job struct {
	file string
	mode checksum.Mode
	bad  string
}

// config is the parsed command line
type config struct {
	jobs       []job
	encoding   output.Encoding
	verbose    bool
	cpuProfile bool
	memProfile bool
	help       bool
	version    bool
}

// modeState tracks options as they are scanned. Options only affect the
// files that follow them.
type modeState struct {
	report     bool
	perChannel bool
	filter     checksum.Filter
	channels   map[int]bool
}

func (s *modeState) block() {
	s.report = false
	s.perChannel = false
	s.channels = nil
}

func (s *modeState) addChannel(c int) {
	if s.channels == nil {
		s.channels = make(map[int]bool)
	}
	s.channels[c] = true
	s.report = false
	s.perChannel = true
}

func (s *modeState) mode() checksum.Mode {
	switch {
	case s.report:
		return checksum.ReportMode()
	case s.perChannel:
		cs := make([]int, 0, len(s.channels))
		for c := range s.channels {
			cs = append(cs, c)
		}
		sort.Ints(cs)
		return checksum.ChannelMode(s.filter, cs...)
	default:
		return checksum.BlockMode(s.filter)
	}
}

// parseArgs scans the arguments in wcrc32sum order: options and
// files may be interleaved, "--" ends option parsing, "-" reads standard
// input, and standard input is used when no file is given.
func parseArgs(args []string) (cfg config, err error) {
	var s modeState
	options := true

	for _, arg := range args {
		switch {
		case arg == "--" && options:
			options = false
		case arg == stdinName, !options, !strings.HasPrefix(arg, "-"):
			cfg.jobs = append(cfg.jobs, job{file: arg, mode: s.mode()})
		case strings.HasPrefix(arg, "--"):
			if err = cfg.longOption(&s, arg); err != nil {
				return
			}
		default:
			if err = cfg.shortOption(&s, arg); err != nil {
				return
			}
		}
		if cfg.help || cfg.version {
			return
		}
	}

	if !cfg.hasFiles() {
		cfg.jobs = append(cfg.jobs, job{file: stdinName, mode: s.mode()})
	}
	return
}

func (cfg config) hasFiles() bool {
	for _, j := range cfg.jobs {
		if j.bad == "" {
			return true
		}
	}
	return false
}

func (cfg *config) longOption(s *modeState, arg string) error {
	switch {
	case arg == "--block":
		s.block()
	case strings.HasPrefix(arg, "--channel="):
		cfg.channelOption(s, arg, strings.TrimPrefix(arg, "--channel="))
	case arg == "--all":
		s.filter = checksum.FilterAllSamples
	case arg == "--no-null":
		s.filter = checksum.FilterNoNullSamples
	case arg == "--no-null-blocks":
		s.filter = checksum.FilterNoNullBlocks
	case arg == "--left-no-null":
		s.leftNoNull()
	case arg == "--report":
		s.report = true
	case arg == "--utf16":
		cfg.encoding = output.EncodingUTF16
	case arg == "--verbose":
		cfg.verbose = true
	case arg == "--cpu-profile":
		cfg.cpuProfile = true
	case arg == "--mem-profile":
		cfg.memProfile = true
	case arg == "--help":
		cfg.help = true
	case arg == "--version":
		cfg.version = true
	default:
		return fmt.Errorf("unknown option: %s", arg)
	}
	return nil
}

func (cfg *config) shortOption(s *modeState, arg string) error {
	switch {
	case arg == "-b":
		s.block()
	case strings.HasPrefix(arg, "-c"):
		cfg.channelOption(s, arg, strings.TrimPrefix(arg, "-c"))
	case arg == "-a":
		s.filter = checksum.FilterAllSamples
	case arg == "-n":
		s.filter = checksum.FilterNoNullSamples
	case arg == "-l":
		s.leftNoNull()
	case arg == "-r":
		s.report = true
	case arg == "-v":
		cfg.verbose = true
	default:
		return fmt.Errorf("unknown option: %s", arg)
	}
	return nil
}

func (s *modeState) leftNoNull() {
	s.channels = nil
	s.addChannel(0)
	s.filter = checksum.FilterNoNullSamples
}

// channelOption handles -c<ch> and --channel=<ch>. A selector is a single
// character: a digit, or l/r for the left/right channel. Channels 10 and up
// cannot be named here. An unknown single character still switches to
// channel granularity; a selector of any other length changes nothing.
func (cfg *config) channelOption(s *modeState, arg, sel string) {
	c, ok := parseChannel(sel)
	if !ok {
		cfg.jobs = append(cfg.jobs, job{bad: arg})
		if len(sel) == 1 {
			s.report = false
			s.perChannel = true
		}
		return
	}
	s.addChannel(c)
}

func parseChannel(sel string) (int, bool) {
	if len(sel) != 1 {
		return 0, false
	}
	switch ch := sel[0]; {
	case ch == 'l' || ch == 'L':
		return 0, true
	case ch == 'r' || ch == 'R':
		return 1, true
	case ch >= '0' && ch <= '9':
		return int(ch - '0'), true
	default:
		return 0, false
	}
}
