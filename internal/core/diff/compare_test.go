package diff

import (
	"strings"
	"testing"

	"github.com/example/parity/internal/core/execution"
)

func result(origin execution.Origin, stdout, stderr string, exit int) execution.Result {
	return execution.Result{
		Key:      execution.Key{Fixture: "basic", Mode: "default", Origin: origin},
		Stdout:   []byte(stdout),
		Stderr:   []byte(stderr),
		ExitCode: exit,
	}
}

func TestCompare_NoDiffWhenChannelsMatch(t *testing.T) {
	tests := []struct {
		name   string
		policy StderrPolicy
		ref    execution.Result
		cand   execution.Result
	}{
		{
			name:   "identical output strict",
			policy: StderrStrict,
			ref:    result(execution.OriginReference, "<p>hi</p>\n", "", 0),
			cand:   result(execution.OriginCandidate, "<p>hi</p>\n", "", 0),
		},
		{
			name:   "stderr text differs under presence policy",
			policy: StderrPresence,
			ref:    result(execution.OriginReference, "out\n", "warning: x\n", 0),
			cand:   result(execution.OriginCandidate, "out\n", "warning: richer detail about x\n", 0),
		},
		{
			name:   "stderr presence differs under ignore policy",
			policy: StderrIgnore,
			ref:    result(execution.OriginReference, "out\n", "", 1),
			cand:   result(execution.OriginCandidate, "out\n", "boom\n", 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if d := Compare(tt.ref, tt.cand, tt.policy); d != nil {
				t.Errorf("expected no diff, got %q", d.Summary())
			}
		})
	}
}

func TestCompare_Divergence(t *testing.T) {
	tests := []struct {
		name         string
		policy       StderrPolicy
		ref          execution.Result
		cand         execution.Result
		wantChannels []Channel
		wantSummary  string
	}{
		{
			name:         "stdout line change",
			policy:       StderrIgnore,
			ref:          result(execution.OriginReference, "a\nb\nc\n", "", 0),
			cand:         result(execution.OriginCandidate, "a\nB\nc\n", "", 0),
			wantChannels: []Channel{ChannelStdout},
			wantSummary:  "stdout differs at byte 2 (1 hunk)",
		},
		{
			name:         "exit code only",
			policy:       StderrIgnore,
			ref:          result(execution.OriginReference, "x", "", 0),
			cand:         result(execution.OriginCandidate, "x", "", 2),
			wantChannels: []Channel{ChannelExitCode},
			wantSummary:  "exit code mismatch: reference=0 candidate=2",
		},
		{
			name:         "stderr strict",
			policy:       StderrStrict,
			ref:          result(execution.OriginReference, "", "w1\n", 0),
			cand:         result(execution.OriginCandidate, "", "w2\n", 0),
			wantChannels: []Channel{ChannelStderr},
		},
		{
			name:         "stderr presence",
			policy:       StderrPresence,
			ref:          result(execution.OriginReference, "", "", 0),
			cand:         result(execution.OriginCandidate, "", "w\n", 0),
			wantChannels: []Channel{ChannelStderr},
			wantSummary:  "stderr presence mismatch: reference empty, candidate non-empty",
		},
		{
			name:         "missing trailing newline",
			policy:       StderrIgnore,
			ref:          result(execution.OriginReference, "a\n", "", 0),
			cand:         result(execution.OriginCandidate, "a", "", 0),
			wantChannels: []Channel{ChannelStdout},
			wantSummary:  "stdout differs at byte 1 (1 hunk)",
		},
		{
			name:         "all channels",
			policy:       StderrStrict,
			ref:          result(execution.OriginReference, "a\n", "", 0),
			cand:         result(execution.OriginCandidate, "b\n", "e\n", 1),
			wantChannels: []Channel{ChannelStdout, ChannelExitCode, ChannelStderr},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare(tt.ref, tt.cand, tt.policy)
			if d == nil {
				t.Fatal("expected diff, got nil")
			}
			if d.Fixture != "basic" || d.Mode != "default" {
				t.Errorf("key = %s, want basic@default", d.Key())
			}
			if len(d.Channels) != len(tt.wantChannels) {
				t.Fatalf("channels = %d, want %d", len(d.Channels), len(tt.wantChannels))
			}
			for i, c := range tt.wantChannels {
				if d.Channels[i].Channel != c {
					t.Errorf("channel[%d] = %s, want %s", i, d.Channels[i].Channel, c)
				}
			}
			if tt.wantSummary != "" && d.Summary() != tt.wantSummary {
				t.Errorf("Summary = %q, want %q", d.Summary(), tt.wantSummary)
			}
			if d.Classified() {
				t.Error("new diff must be unclassified")
			}
		})
	}
}

func TestCompare_HunksAndUnified(t *testing.T) {
	ref := result(execution.OriginReference, "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n", "", 0)
	cand := result(execution.OriginCandidate, "1\n2\n3\n4\n5\n6\n7\n8\n9\nten\n", "", 0)

	d := Compare(ref, cand, StderrIgnore)
	if d == nil {
		t.Fatal("expected diff")
	}
	stdout := d.Channels[0]
	if len(stdout.Hunks) != 1 {
		t.Fatalf("hunks = %v", stdout.Hunks)
	}
	if got := stdout.Hunks[0].String(); got != "@@ -7,4 +7,4 @@" {
		t.Errorf("hunk = %s", got)
	}
	if !strings.Contains(stdout.Unified, "-10\n") || !strings.Contains(stdout.Unified, "+ten\n") {
		t.Errorf("unified diff missing change lines:\n%s", stdout.Unified)
	}
	if !strings.HasPrefix(stdout.Unified, "--- reference/stdout") {
		t.Errorf("unified diff header = %q", stdout.Unified)
	}
}

func TestCompare_HunkHeaderMatchesUnified(t *testing.T) {
	tests := []struct {
		name      string
		ref, cand string
		want      string
	}{
		{"insertion into empty output", "", "x\n", "@@ -0,0 +1 @@"},
		{"deletion to empty output", "a\nb\n", "", "@@ -1,2 +0,0 @@"},
		{"single line replaced", "a\n", "b\n", "@@ -1 +1 @@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Compare(
				result(execution.OriginReference, tt.ref, "", 0),
				result(execution.OriginCandidate, tt.cand, "", 0),
				StderrIgnore,
			)
			if d == nil {
				t.Fatal("expected diff")
			}
			stdout := d.Channels[0]
			if len(stdout.Hunks) != 1 {
				t.Fatalf("hunks = %v", stdout.Hunks)
			}
			got := stdout.Hunks[0].String()
			if got != tt.want {
				t.Errorf("hunk = %s, want %s", got, tt.want)
			}
			if !strings.Contains(stdout.Unified, got+"\n") {
				t.Errorf("unified diff does not carry header %s:\n%s", got, stdout.Unified)
			}
		})
	}
}

func TestCompare_Binary(t *testing.T) {
	ref := result(execution.OriginReference, "ab\x00cd", "", 0)
	cand := result(execution.OriginCandidate, "ab\x00ce", "", 0)

	d := Compare(ref, cand, StderrIgnore)
	if d == nil {
		t.Fatal("expected diff")
	}
	c := d.Channels[0]
	if !c.Binary || c.ByteOffset != 4 || len(c.Hunks) != 0 {
		t.Errorf("binary divergence = %+v", c)
	}
}

func TestCompare_FingerprintStable(t *testing.T) {
	ref := result(execution.OriginReference, "a\n", "", 0)
	cand := result(execution.OriginCandidate, "b\n", "", 0)

	first := Compare(ref, cand, StderrIgnore)
	second := Compare(ref, cand, StderrIgnore)
	if first.Fingerprint != second.Fingerprint {
		t.Error("fingerprint must be deterministic")
	}

	other := Compare(ref, result(execution.OriginCandidate, "c\n", "", 0), StderrIgnore)
	if other.Fingerprint == first.Fingerprint {
		t.Error("different divergence must not share a fingerprint")
	}

	noisy := Compare(
		result(execution.OriginReference, "a\n", "", 0),
		result(execution.OriginCandidate, "b\n", "", 0),
		StderrPresence,
	)
	if noisy.Fingerprint != first.Fingerprint {
		t.Error("policy that adds no channel must not change the fingerprint")
	}
}

func TestParseStderrPolicy(t *testing.T) {
	for _, in := range []string{"strict", "PRESENCE", " ignore "} {
		if _, err := ParseStderrPolicy(in); err != nil {
			t.Errorf("ParseStderrPolicy(%q) failed: %v", in, err)
		}
	}
	if _, err := ParseStderrPolicy(""); err == nil {
		t.Error("empty policy must be rejected")
	}
	if _, err := ParseStderrPolicy("loose"); err == nil {
		t.Error("unknown policy must be rejected")
	}
}

func TestCategory(t *testing.T) {
	if CategoryPortingBug.Accepted() {
		t.Error("porting-bug must never be accepted")
	}
	if !CategoryUpstreamBug.Accepted() {
		t.Error("upstream-bug is an accepted terminal state")
	}
	if Category("wontfix").Valid() {
		t.Error("unknown category must be invalid")
	}
}
