// Package diff is the pure comparison engine. It turns a pair of execution
// results into either nothing (the pair matches) or a Diff describing where
// the outputs diverge.
package diff

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/parity/internal/core/execution"
)

// Category is the terminal classification of a Diff.
type Category string

const (
	CategoryPortingBug             Category = "porting-bug"
	CategoryLibraryDifference      Category = "library-difference"
	CategoryUpstreamBug            Category = "upstream-bug"
	CategoryIntentionalImprovement Category = "intentional-improvement"
)

// Categories lists the closed taxonomy.
var Categories = []Category{
	CategoryPortingBug,
	CategoryLibraryDifference,
	CategoryUpstreamBug,
	CategoryIntentionalImprovement,
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Accepted reports whether a diff in this category can pass the gate.
func (c Category) Accepted() bool {
	return c.Valid() && c != CategoryPortingBug
}

// Channel names an output stream that can diverge.
type Channel string

const (
	ChannelStdout   Channel = "stdout"
	ChannelStderr   Channel = "stderr"
	ChannelExitCode Channel = "exit-code"
)

// Hunk is a unified-diff style span, 1-based. An empty side starts at the
// line before the span, so an insertion into empty output is -0,0.
type Hunk struct {
	RefStart  int `json:"ref_start"`
	RefCount  int `json:"ref_count"`
	CandStart int `json:"cand_start"`
	CandCount int `json:"cand_count"`
}

// String renders the hunk header the way unified diff text does: a
// single-line span omits its count.
func (h Hunk) String() string {
	return fmt.Sprintf("@@ -%s +%s @@", hunkRange(h.RefStart, h.RefCount), hunkRange(h.CandStart, h.CandCount))
}

func hunkRange(start, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}

// ChannelDivergence describes how one channel differs.
type ChannelDivergence struct {
	Channel    Channel `json:"channel"`
	Summary    string  `json:"summary"`
	ByteOffset int     `json:"byte_offset"` // -1 for channels without byte content
	RefSize    int     `json:"ref_size"`
	CandSize   int     `json:"cand_size"`
	Binary     bool    `json:"binary,omitempty"`
	Hunks      []Hunk  `json:"hunks,omitempty"`
	Unified    string  `json:"unified,omitempty"`
}

// Classification is attached to a Diff exactly once.
type Classification struct {
	Category     Category  `json:"category"`
	WorkaroundID string    `json:"workaround_id,omitempty"`
	ClassifiedBy string    `json:"classified_by,omitempty"`
	ClassifiedAt time.Time `json:"classified_at"`
}

// Diff is a recorded divergence between reference and candidate output for
// one fixture/mode pair. A nil Classification means Unclassified.
type Diff struct {
	Fixture        string              `json:"fixture"`
	Mode           string              `json:"mode"`
	Channels       []ChannelDivergence `json:"channels"`
	Fingerprint    string              `json:"fingerprint"`
	Classification *Classification     `json:"classification,omitempty"`
}

// Key returns the fixture/mode pair the diff belongs to.
func (d *Diff) Key() execution.PairKey {
	return execution.PairKey{Fixture: d.Fixture, Mode: d.Mode}
}

// Classified reports whether the diff reached a terminal state.
func (d *Diff) Classified() bool {
	return d.Classification != nil
}

// Summary joins the per-channel summaries.
func (d *Diff) Summary() string {
	parts := make([]string, len(d.Channels))
	for i, c := range d.Channels {
		parts[i] = c.Summary
	}
	return strings.Join(parts, "; ")
}

// ShortFingerprint is the first 12 hex characters of the fingerprint.
func (d *Diff) ShortFingerprint() string {
	if len(d.Fingerprint) <= 12 {
		return d.Fingerprint
	}
	return d.Fingerprint[:12]
}
