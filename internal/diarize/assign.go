package diarize

import (
	"sort"

	"github.com/kbukum/whisperlm/internal/transcribe"
)

// AssignSpeakers labels segments and their words with the speaker whose
// turns overlap them the most. Intervals with no overlapping turn keep an
// empty speaker. Segments are modified in place.
func AssignSpeakers(turns []Turn, segments []transcribe.Segment) {
	if len(turns) == 0 {
		return
	}
	for i := range segments {
		seg := &segments[i]
		seg.Speaker = dominantSpeaker(turns, seg.Start, seg.End)
		for j := range seg.Words {
			w := &seg.Words[j]
			// Words dropped by alignment carry no timestamps; leave them
			// unattributed rather than guessing.
			if w.End <= w.Start {
				continue
			}
			w.Speaker = dominantSpeaker(turns, w.Start, w.End)
		}
	}
}

// Speakers returns the sorted set of distinct non-empty speaker labels
// appearing on segments.
func Speakers(segments []transcribe.Segment) []string {
	seen := make(map[string]struct{})
	for i := range segments {
		if s := segments[i].Speaker; s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// dominantSpeaker returns the speaker with the largest total overlap with
// [start, end), or "" when no turn intersects it.
func dominantSpeaker(turns []Turn, start, end float64) string {
	overlap := make(map[string]float64)
	for _, t := range turns {
		lo := max(t.Start, start)
		hi := min(t.End, end)
		if hi > lo {
			overlap[t.Speaker] += hi - lo
		}
	}

	best := ""
	bestOverlap := 0.0
	for speaker, d := range overlap {
		if d > bestOverlap || (d == bestOverlap && (best == "" || speaker < best)) {
			best = speaker
			bestOverlap = d
		}
	}
	return best
}
