package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/asticode/go-astikit"
	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/output"
	"github.com/pkg/profile"
)

const (
	appName    = "wcrc32sum"
	appVersion = "0.7.0"
)

// Exit codes
const (
	exitOK        = 0
	exitConfig    = 1
	exitMalformed = 2
)

const usage = `Usage: wcrc32sum [OPTION]... [FILE]...
Print CRC32 sums of PCM data in RIFF WAV files, as computed by EAC.
With no FILE, or when FILE is -, read standard input.
Options apply to the files that follow them.

  -b, --block            sum whole sample blocks (default)
  -c<ch>, --channel=<ch> sum channel <ch> (0-9, l or r), may be repeated
  -a, --all              use all samples (default)
  -n, --no-null          skip null samples
      --no-null-blocks   skip sample blocks whose samples are all null
  -l, --left-no-null     same as -c0 -n
  -r, --report           print header info and the three EAC sums
      --utf16            write UTF-16LE output
  -v, --verbose          log progress on standard error
      --cpu-profile      write a CPU profile to the current directory
      --mem-profile      write a memory profile to the current directory
      --help             display this help and exit
      --version          output version information and exit
`

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handleSignals(cancel)

	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
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

// run checksums every file named on the command line and returns the exit
// code. A failing file does not stop the batch; the exit code reflects the
// worst outcome.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "*%v\n", err)
		fmt.Fprintf(stderr, "Try '%s --help' for more information.\n", appName)
		return exitConfig
	}
	if cfg.help {
		fmt.Fprint(stdout, usage)
		return exitOK
	}
	if cfg.version {
		fmt.Fprintf(stdout, "%s %s\n", appName, appVersion)
		return exitOK
	}

	// Start profiling
	if cfg.cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	} else if cfg.memProfile {
		defer profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.Quiet).Stop()
	}

	var opts []func(*checksum.Processor)
	var l astikit.CompleteLogger = astikit.AdaptStdLogger(nil)
	if cfg.verbose {
		std := log.New(stderr, appName+": ", 0)
		opts = append(opts, checksum.ProcessorOptLogger(std))
		l = astikit.AdaptStdLogger(std)
	}
	p := checksum.NewProcessor(opts...)

	worst := checksum.OutcomeOK
	w := output.NewWriter(stdout, cfg.encoding)
	defer w.Close()

	for _, j := range cfg.jobs {
		if ctx.Err() != nil {
			l.Debugf("%s: interrupted, skipping remaining files", appName)
			worst = checksum.Worst(worst, checksum.OutcomeMalformed)
			break
		}
		if j.bad != "" {
			fmt.Fprintln(stderr, output.Diagnostic(j.bad, checksum.ErrInvalidChannelSelector))
			worst = checksum.Worst(worst, checksum.OutcomeConfig)
			continue
		}

		r, err := checksumFile(ctx, p, j, stdin)
		if err != nil {
			l.Debugf("%s: %s: %v", appName, j.file, err)
			fmt.Fprintln(stderr, diagnostic(j.file, err))
			worst = checksum.Worst(worst, checksum.Classify(err))
			continue
		}
		if err = w.Result(r); err != nil {
			fmt.Fprintf(stderr, "*%v\n", err)
			worst = checksum.Worst(worst, checksum.OutcomeMalformed)
		}
	}

	return exitCode(worst)
}

// openError marks a file that could not be opened
type openError struct{ err error }

func (e openError) Error() string { return e.err.Error() }
func (e openError) Unwrap() error { return e.err }

func checksumFile(ctx context.Context, p *checksum.Processor, j job, stdin io.Reader) (*checksum.Result, error) {
	r := stdin
	if j.file != stdinName {
		f, err := os.Open(j.file)
		if err != nil {
			return nil, openError{err: err}
		}
		defer f.Close()
		r = f
	}
	return p.Process(ctx, r, j.file, j.mode)
}

func diagnostic(file string, err error) string {
	if _, ok := err.(openError); ok {
		return fmt.Sprintf("*Can not open file: %s", output.Label(file))
	}
	return output.Diagnostic(file, err)
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
