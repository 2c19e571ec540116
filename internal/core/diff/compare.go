package diff

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/example/parity/internal/core/execution"
)

// StderrPolicy decides how stderr participates in a comparison.
type StderrPolicy string

const (
	StderrStrict   StderrPolicy = "strict"   // byte-exact
	StderrPresence StderrPolicy = "presence" // both empty or both non-empty
	StderrIgnore   StderrPolicy = "ignore"
)

// ParseStderrPolicy validates a policy name. The empty string is rejected:
// a run must always state its policy.
func ParseStderrPolicy(s string) (StderrPolicy, error) {
	switch p := StderrPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case StderrStrict, StderrPresence, StderrIgnore:
		return p, nil
	case "":
		return "", fmt.Errorf("stderr policy must be set explicitly (strict, presence or ignore)")
	default:
		return "", fmt.Errorf("unknown stderr policy %q (want strict, presence or ignore)", s)
	}
}

const contextLines = 3

// Compare returns nil when ref and cand match on every channel under the
// policy, and a populated Diff otherwise.
func Compare(ref, cand execution.Result, policy StderrPolicy) *Diff {
	var channels []ChannelDivergence

	if !bytes.Equal(ref.Stdout, cand.Stdout) {
		channels = append(channels, describeBytes(ChannelStdout, ref.Stdout, cand.Stdout))
	}

	if ref.ExitCode != cand.ExitCode {
		channels = append(channels, ChannelDivergence{
			Channel:    ChannelExitCode,
			Summary:    fmt.Sprintf("exit code mismatch: reference=%d candidate=%d", ref.ExitCode, cand.ExitCode),
			ByteOffset: -1,
		})
	}

	switch policy {
	case StderrStrict:
		if !bytes.Equal(ref.Stderr, cand.Stderr) {
			channels = append(channels, describeBytes(ChannelStderr, ref.Stderr, cand.Stderr))
		}
	case StderrPresence:
		if (len(ref.Stderr) == 0) != (len(cand.Stderr) == 0) {
			channels = append(channels, ChannelDivergence{
				Channel:    ChannelStderr,
				Summary:    fmt.Sprintf("stderr presence mismatch: reference %s, candidate %s", presence(ref.Stderr), presence(cand.Stderr)),
				ByteOffset: -1,
				RefSize:    len(ref.Stderr),
				CandSize:   len(cand.Stderr),
			})
		}
	}

	if len(channels) == 0 {
		return nil
	}

	return &Diff{
		Fixture:     ref.Fixture,
		Mode:        ref.Mode,
		Channels:    channels,
		Fingerprint: fingerprint(channels, ref, cand),
	}
}

// DescribeBytes compares two byte slices outside of a Result pair; it is
// used to check reference output against a corpus expected artifact.
func DescribeBytes(channel Channel, ref, cand []byte) (ChannelDivergence, bool) {
	if bytes.Equal(ref, cand) {
		return ChannelDivergence{}, false
	}
	return describeBytes(channel, ref, cand), true
}

func describeBytes(channel Channel, ref, cand []byte) ChannelDivergence {
	d := ChannelDivergence{
		Channel:    channel,
		ByteOffset: firstDifference(ref, cand),
		RefSize:    len(ref),
		CandSize:   len(cand),
	}

	if isBinary(ref) || isBinary(cand) {
		d.Binary = true
		d.Summary = fmt.Sprintf("binary %s differs at byte %d (reference %d bytes, candidate %d bytes)",
			channel, d.ByteOffset, d.RefSize, d.CandSize)
		return d
	}

	a, b := splitLines(ref), splitLines(cand)
	matcher := difflib.NewMatcher(a, b)
	for _, group := range matcher.GetGroupedOpCodes(contextLines) {
		first, last := group[0], group[len(group)-1]
		d.Hunks = append(d.Hunks, Hunk{
			RefStart:  hunkStart(first.I1, last.I2),
			RefCount:  last.I2 - first.I1,
			CandStart: hunkStart(first.J1, last.J2),
			CandCount: last.J2 - first.J1,
		})
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "reference/" + string(channel),
		ToFile:   "candidate/" + string(channel),
		Context:  contextLines,
	})
	if err == nil {
		d.Unified = unified
	}

	d.Summary = fmt.Sprintf("%s differs at byte %d (%d hunk%s)", channel, d.ByteOffset, len(d.Hunks), plural(len(d.Hunks)))
	return d
}

// hunkStart converts a 0-based half-open span to its 1-based start line.
func hunkStart(lo, hi int) int {
	if hi == lo {
		return lo
	}
	return lo + 1
}

// splitLines keeps line terminators so CRLF and trailing-newline
// differences stay visible. A final line without a terminator is marked.
func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	lines := strings.SplitAfter(string(b), "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n\\ No newline at end of file\n"
	return lines
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func isBinary(b []byte) bool {
	return bytes.IndexByte(b, 0) >= 0
}

func presence(b []byte) string {
	if len(b) == 0 {
		return "empty"
	}
	return "non-empty"
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// fingerprint hashes exactly the divergent channels of both sides, so the
// same divergence always maps to the same value across runs.
func fingerprint(channels []ChannelDivergence, ref, cand execution.Result) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00", ref.Fixture, ref.Mode)
	for _, c := range channels {
		fmt.Fprintf(h, "%s\x00", c.Channel)
		switch c.Channel {
		case ChannelStdout:
			writeSized(h, ref.Stdout)
			writeSized(h, cand.Stdout)
		case ChannelStderr:
			if c.ByteOffset < 0 {
				fmt.Fprintf(h, "%s\x00%s\x00", presence(ref.Stderr), presence(cand.Stderr))
				continue
			}
			writeSized(h, ref.Stderr)
			writeSized(h, cand.Stderr)
		case ChannelExitCode:
			fmt.Fprintf(h, "%d\x00%d\x00", ref.ExitCode, cand.ExitCode)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeSized(h io.Writer, b []byte) {
	fmt.Fprintf(h, "%d\x00", len(b))
	h.Write(b)
}
