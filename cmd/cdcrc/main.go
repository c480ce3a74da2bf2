package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/binaryphile/wavcrc32/internal/cdda"
	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/musicbrainz"
	"github.com/binaryphile/wavcrc32/internal/output"
	"github.com/binaryphile/wavcrc32/internal/scsi"
	"github.com/google/gousb"
	"github.com/pkg/profile"
)

const (
	appName    = "cdcrc"
	appVersion = "0.7.0"
	appURL     = "https://github.com/binaryphile/wavcrc32"
)

// Exit codes, shared with wcrc32sum
const (
	exitOK        = 0
	exitConfig    = 1
	exitMalformed = 2
)

func main() {
	// Parse flags
	noNull := flag.Bool("n", false, "Skip null samples")
	flag.BoolVar(noNull, "no-null", false, "Skip null samples")

	noNullBlocks := flag.Bool("no-null-blocks", false, "Skip sample blocks whose samples are all null")

	channels := flag.String("c", "", "Channels to sum (comma-separated, 0-based, l and r accepted)")
	flag.StringVar(channels, "channel", "", "Channels to sum (comma-separated, 0-based, l and r accepted)")

	report := flag.Bool("r", false, "Print the three EAC sums per track")
	flag.BoolVar(report, "report", false, "Print the three EAC sums per track")

	tracks := flag.String("t", "", "Tracks to read (comma-separated, e.g., 1,3,5)")
	flag.StringVar(tracks, "tracks", "", "Tracks to read (comma-separated, e.g., 1,3,5)")

	tocOnly := flag.Bool("toc", false, "Show TOC and disc ID only")

	lookup := flag.Bool("lookup", false, "Look up the disc on MusicBrainz and list track titles")

	chunkSize := flag.Int("chunk-size", scsi.DefaultChunkFrames, "Frames per USB transfer")

	verbose := flag.Bool("v", false, "Verbose output")
	flag.BoolVar(verbose, "verbose", false, "Verbose output")

	vendorID := flag.String("vendor-id", "", "USB vendor ID (hex, e.g., 0x0e8d)")
	productID := flag.String("product-id", "", "USB product ID (hex, e.g., 0x1887)")

	cpuProfile := flag.Bool("cpu-profile", false, "Write a CPU profile to the current directory")
	memProfile := flag.Bool("mem-profile", false, "Write a memory profile to the current directory")

	flag.Parse()

	mode, err := buildMode(*report, *noNull, *noNullBlocks, *channels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "*%v\n", err)
		os.Exit(exitConfig)
	}

	vid, err := parseID(*vendorID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid vendor ID: %s\n", *vendorID)
		os.Exit(exitConfig)
	}
	pid, err := parseID(*productID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid product ID: %s\n", *productID)
		os.Exit(exitConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(cancel)

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "cdcrc: ", 0)
	}

	code := run(ctx, runConfig{
		chunk:      *chunkSize,
		cpuProfile: *cpuProfile,
		logger:     logger,
		lookup:     *lookup,
		memProfile: *memProfile,
		mode:       mode,
		productID:  pid,
		tocOnly:    *tocOnly,
		tracks:     parseTrackList(*tracks),
		vendorID:   vid,
	})
	cancel()
	os.Exit(code)
}

func handleSignals(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
}

type runConfig struct {
	chunk      int
	cpuProfile bool
	logger     *log.Logger
	lookup     bool
	memProfile bool
	mode       checksum.Mode
	productID  gousb.ID
	tocOnly    bool
	tracks     map[int]bool
	vendorID   gousb.ID
}

func run(ctx context.Context, cfg runConfig) int {
	// Start profiling
	if cfg.cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	} else if cfg.memProfile {
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	var devOpts []func(*scsi.Device)
	if cfg.logger != nil {
		devOpts = append(devOpts, scsi.DeviceOptLogger(cfg.logger))
	}

	// Open device
	dev, err := scsi.OpenDevice(cfg.vendorID, cfg.productID, devOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Is the USB CD drive shared with Linux?")
		return exitMalformed
	}
	defer dev.Close()

	w := output.NewWriter(os.Stdout, output.EncodingUTF8)
	defer w.Close()

	info, err := dev.Inquiry(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INQUIRY failed: %v\n", err)
		return exitMalformed
	}
	deviceType := "Unknown"
	if info.IsCDROM() {
		deviceType = "CD-ROM"
	}
	w.Printf("Device: %s %s (rev %s)\nType: %s\n", info.Vendor, info.Product, info.Revision, deviceType)

	if !dev.TestUnitReady(ctx) {
		fmt.Fprintln(os.Stderr, "No disc in drive or drive not ready")
		return exitMalformed
	}

	raw, err := dev.ReadTOCRaw(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read TOC: %v\n", err)
		return exitMalformed
	}
	toc, err := cdda.ParseTOC(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse TOC: %v\n", err)
		return exitMalformed
	}

	printTOC(w, toc)
	discID := cdda.DiscID(toc)
	w.Printf("\nDisc ID: %s\n", discID)
	if cfg.lookup {
		c := musicbrainz.NewClient(appName, appVersion, appURL)
		if err := printRelease(ctx, w, c, discID, len(toc.Tracks)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		c.Close()
	}
	w.Printf("\n")
	if cfg.tocOnly {
		return exitOK
	}

	s := &session{
		backoff: scsi.DefaultBackoff,
		chunk:   cfg.chunk,
		mode:    cfg.mode,
		retries: scsi.DefaultMaxRetries,
		stderr:  os.Stderr,
		tracks:  cfg.tracks,
		w:       w,
	}
	if cfg.logger != nil {
		s.logger = cfg.logger
		s.progress = os.Stderr
	}
	return exitCode(s.checksumTracks(ctx, dev, toc))
}

// buildMode maps the mode flags to a checksum mode
func buildMode(report, noNull, noNullBlocks bool, channels string) (checksum.Mode, error) {
	if report {
		return checksum.ReportMode(), nil
	}

	filter := checksum.FilterAllSamples
	switch {
	case noNull && noNullBlocks:
		return checksum.Mode{}, fmt.Errorf("%w: -n and -no-null-blocks are exclusive", checksum.ErrInvalidMode)
	case noNull:
		filter = checksum.FilterNoNullSamples
	case noNullBlocks:
		filter = checksum.FilterNoNullBlocks
	}

	if channels == "" {
		return checksum.BlockMode(filter), nil
	}

	var cs []int
	for _, c := range strings.Split(channels, ",") {
		switch c = strings.TrimSpace(c); strings.ToLower(c) {
		case "l":
			cs = append(cs, 0)
		case "r":
			cs = append(cs, 1)
		default:
			n, err := strconv.Atoi(c)
			if err != nil {
				return checksum.Mode{}, fmt.Errorf("%w: %q", checksum.ErrInvalidChannelSelector, c)
			}
			cs = append(cs, n)
		}
	}
	m := checksum.ChannelMode(filter, cs...)
	if err := m.Validate(); err != nil {
		return checksum.Mode{}, err
	}
	return m, nil
}

func parseID(s string) (gousb.ID, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return gousb.ID(v), nil
}

func parseTrackList(tracks string) map[int]bool {
	if tracks == "" {
		return nil
	}

	result := make(map[int]bool)
	for _, t := range strings.Split(tracks, ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			result[n] = true
		}
	}
	return result
}

func printTOC(w *output.Writer, toc cdda.TOC) {
	w.Printf("\nTable of Contents:\n")
	w.Printf("%6s %8s %10s %10s %10s\n", "Track", "Type", "LBA", "Length", "Duration")
	w.Printf("%s\n", strings.Repeat("-", 50))
	for i, t := range toc.Tracks {
		w.Printf("%6d %8s %10d %10d %9.1fs\n", t.Num, t.Type, t.LBA, toc.Frames(i), toc.Duration(i))
	}
	w.Printf("%6s %8s %10d\n", "Lead-out", "-", toc.LeadoutLBA)
}

// releaseLookup finds the releases of a disc
type releaseLookup interface {
	LookupDisc(ctx context.Context, discID string, trackCount int) ([]musicbrainz.Release, error)
}

// printRelease prints the best matching release and its track titles
func printRelease(ctx context.Context, w *output.Writer, l releaseLookup, discID string, trackCount int) error {
	releases, err := l.LookupDisc(ctx, discID, trackCount)
	if err != nil {
		return err
	}
	if len(releases) == 0 {
		return musicbrainz.ErrNoRelease
	}
	r := releases[0]
	w.Printf("Release: %s - %s (%d) [%s]\n", output.Label(r.Artist), output.Label(r.Title), r.Year, r.MBID)
	for n := 1; n <= trackCount; n++ {
		title := r.TrackTitle(n)
		if title == "" {
			title = "(unknown)"
		}
		w.Printf("  %02d  %s\n", n, output.Label(title))
	}
	if len(releases) > 1 {
		w.Printf("(%d other releases share this disc ID)\n", len(releases)-1)
	}
	return nil
}

// session checksums the tracks of one disc
type session struct {
	backoff  time.Duration
	chunk    int
	logger   *log.Logger
	mode     checksum.Mode
	progress io.Writer
	retries  int
	stderr   io.Writer
	tracks   map[int]bool
	w        *output.Writer
}

// trackLabel names a track the way the ripper names its files, so sums
// can be compared with wcrc32sum output on the ripped copies.
func trackLabel(num int) string {
	return fmt.Sprintf("track%02d.wav", num)
}

// checksumTracks streams every selected audio track through the processor
// and returns the worst outcome. A failed track does not stop the disc.
func (s *session) checksumTracks(ctx context.Context, src scsi.FrameReader, toc cdda.TOC) checksum.Outcome {
	var opts []func(*checksum.Processor)
	var readerOpts []func(*scsi.TrackReader)
	readerOpts = append(readerOpts,
		scsi.TrackReaderOptChunk(s.chunk),
		scsi.TrackReaderOptRetries(s.retries, s.backoff),
	)
	if s.logger != nil {
		opts = append(opts, checksum.ProcessorOptLogger(s.logger))
		readerOpts = append(readerOpts, scsi.TrackReaderOptLogger(s.logger))
	}
	p := checksum.NewProcessor(opts...)

	worst := checksum.OutcomeOK
	for i, t := range toc.Tracks {
		if s.tracks != nil && !s.tracks[t.Num] {
			continue
		}
		if !t.IsAudio() {
			fmt.Fprintf(s.stderr, "Track %d: Skipping (data track)\n", t.Num)
			continue
		}
		if ctx.Err() != nil {
			return checksum.Worst(worst, checksum.OutcomeMalformed)
		}

		label := trackLabel(t.Num)
		ro := readerOpts
		if s.progress != nil {
			ro = append(ro[:len(ro):len(ro)], scsi.TrackReaderOptProgress(s.progressFunc(time.Now())))
		}
		r := scsi.NewTrackReader(ctx, src, t.LBA, toc.End(i), ro...)

		res, err := p.ProcessData(ctx, r, label, cdda.Header(toc.Frames(i)), s.mode)
		if s.progress != nil {
			fmt.Fprintln(s.progress)
		}
		if err != nil {
			fmt.Fprintln(s.stderr, diagnostic(label, err))
			if s.logger != nil {
				s.logger.Printf("track %d: %v", t.Num, err)
			}
			worst = checksum.Worst(worst, checksum.Classify(err))
			continue
		}
		if err = s.w.Result(res); err != nil {
			fmt.Fprintf(s.stderr, "*%v\n", err)
			worst = checksum.Worst(worst, checksum.OutcomeMalformed)
		}
	}
	return worst
}

func diagnostic(label string, err error) string {
	if errors.Is(err, scsi.ErrTooManyReadErrors) {
		return fmt.Sprintf("*Too many read errors: %s", label)
	}
	return output.Diagnostic(label, err)
}

func (s *session) progressFunc(start time.Time) func(done, total int) {
	return func(done, total int) {
		speed := float64(done) / time.Since(start).Seconds()
		eta := float64(total-done) / speed
		fmt.Fprintf(s.progress, "\r  %3d%% | %d/%d frames | %.0f frames/s | ETA: %.0fs   ",
			done*100/total, done, total, speed, eta)
	}
}

func exitCode(o checksum.Outcome) int {
	switch o {
	case checksum.OutcomeOK:
		return exitOK
	case checksum.OutcomeConfig:
		return exitConfig
	default:
		return exitMalformed
	}
}
