package main

import (
	"testing"

	"github.com/binaryphile/wavcrc32/internal/checksum"
	"github.com/binaryphile/wavcrc32/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Stdin(t *testing.T) {
	cfg, err := parseArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, []job{{file: stdinName, mode: checksum.BlockMode(checksum.FilterAllSamples)}}, cfg.jobs)

	cfg, err = parseArgs([]string{"-n"})
	require.NoError(t, err)
	assert.Equal(t, []job{{file: stdinName, mode: checksum.BlockMode(checksum.FilterNoNullSamples)}}, cfg.jobs)
}

func TestParseArgs_Interleaved(t *testing.T) {
	cfg, err := parseArgs([]string{
		"-n", "a.wav",
		"-b", "-a", "b.wav",
		"-c0", "-cr", "c.wav",
		"-r", "d.wav",
		"-c0", "-b", "--channel=1", "e.wav",
		"-l", "f.wav",
		"--block", "--no-null-blocks", "g.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, []job{
		{file: "a.wav", mode: checksum.BlockMode(checksum.FilterNoNullSamples)},
		{file: "b.wav", mode: checksum.BlockMode(checksum.FilterAllSamples)},
		{file: "c.wav", mode: checksum.ChannelMode(checksum.FilterAllSamples, 0, 1)},
		{file: "d.wav", mode: checksum.ReportMode()},
		{file: "e.wav", mode: checksum.ChannelMode(checksum.FilterAllSamples, 1)},
		{file: "f.wav", mode: checksum.ChannelMode(checksum.FilterNoNullSamples, 0)},
		{file: "g.wav", mode: checksum.BlockMode(checksum.FilterNoNullBlocks)},
	}, cfg.jobs)
}

func TestParseArgs_ChannelSelectors(t *testing.T) {
	for sel, want := range map[string]int{"0": 0, "9": 9, "l": 0, "L": 0, "r": 1, "R": 1} {
		c, ok := parseChannel(sel)
		assert.True(t, ok, sel)
		assert.Equal(t, want, c, sel)
	}
	for _, sel := range []string{"", "x", "10", "-1", "lr"} {
		_, ok := parseChannel(sel)
		assert.False(t, ok, sel)
	}

	cfg, err := parseArgs([]string{"-c3", "-cx", "--channel=12", "a.wav"})
	require.NoError(t, err)
	assert.Equal(t, []job{
		{bad: "-cx"},
		{bad: "--channel=12"},
		{file: "a.wav", mode: checksum.ChannelMode(checksum.FilterAllSamples, 3)},
	}, cfg.jobs)
}

func TestParseArgs_BadSelectorSwitchesMode(t *testing.T) {
	cfg, err := parseArgs([]string{"-r", "-c12", "a.wav", "-cx", "b.wav"})
	require.NoError(t, err)
	require.Len(t, cfg.jobs, 4)
	assert.Equal(t, job{bad: "-c12"}, cfg.jobs[0])
	assert.Equal(t, job{file: "a.wav", mode: checksum.ReportMode()}, cfg.jobs[1])
	assert.Equal(t, job{bad: "-cx"}, cfg.jobs[2])

	// A single unknown character selects channel granularity with no channel
	b := cfg.jobs[3]
	assert.Equal(t, "b.wav", b.file)
	assert.False(t, b.mode.Report)
	assert.Equal(t, checksum.GranularityChannel, b.mode.Granularity)
	assert.Empty(t, b.mode.Channels)
	assert.ErrorIs(t, b.mode.Validate(), checksum.ErrInvalidMode)

	cfg, err = parseArgs([]string{"-cx"})
	require.NoError(t, err)
	require.Len(t, cfg.jobs, 2)
	assert.Equal(t, job{bad: "-cx"}, cfg.jobs[0])
	assert.Equal(t, stdinName, cfg.jobs[1].file)
}

func TestParseArgs_EndOfOptions(t *testing.T) {
	cfg, err := parseArgs([]string{"-n", "--", "-r", "--", "-"})
	require.NoError(t, err)
	m := checksum.BlockMode(checksum.FilterNoNullSamples)
	assert.Equal(t, []job{{file: "-r", mode: m}, {file: "--", mode: m}, {file: "-", mode: m}}, cfg.jobs)
}

func TestParseArgs_Globals(t *testing.T) {
	cfg, err := parseArgs([]string{"--utf16", "-v", "--cpu-profile", "a.wav"})
	require.NoError(t, err)
	assert.Equal(t, output.EncodingUTF16, cfg.encoding)
	assert.True(t, cfg.verbose)
	assert.True(t, cfg.cpuProfile)
	assert.False(t, cfg.memProfile)

	cfg, err = parseArgs([]string{"a.wav", "--help", "b.wav"})
	require.NoError(t, err)
	assert.True(t, cfg.help)

	cfg, err = parseArgs([]string{"--version"})
	require.NoError(t, err)
	assert.True(t, cfg.version)
}

func TestParseArgs_UnknownOption(t *testing.T) {
	for _, arg := range []string{"-x", "--bogus", "-nb", "--channel"} {
		_, err := parseArgs([]string{"a.wav", arg})
		assert.EqualError(t, err, "unknown option: "+arg)
	}
}
