package task

import (
	"math"
	"testing"

	"github.com/kbukum/whisperlm/internal/transcribe"
)

func TestBuildResponse_PositionalIDs(t *testing.T) {
	result := &transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{
			{Start: 0, End: 1, Text: " one"},
			{Start: 1, End: 2, Text: "two"},
			{Start: 2, End: 3, Text: "three"},
		},
	}

	resp := buildResponse("abcd1234", result, 3.0, FullOutput())

	if resp.TaskID != "abcd1234" {
		t.Errorf("expected task id abcd1234, got %s", resp.TaskID)
	}
	if resp.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", resp.Status)
	}
	for i, seg := range resp.Segments {
		if seg.ID != i {
			t.Errorf("segment %d: expected id %d, got %d", i, i, seg.ID)
		}
	}
	if resp.Segments[0].Text != "one" {
		t.Errorf("expected trimmed text, got %q", resp.Segments[0].Text)
	}
}

func TestBuildResponse_ConfidenceIsMeanWordScore(t *testing.T) {
	result := &transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{
			{
				Start: 0, End: 2, Text: "hello world",
				Words: []transcribe.Word{
					{Word: "hello", Score: 0.9},
					{Word: "world", Score: 0.7},
				},
			},
			{Start: 2, End: 3, Text: "unaligned"},
		},
	}

	resp := buildResponse("t", result, 3.0, FullOutput())

	if got := resp.Segments[0].Confidence; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected confidence 0.8, got %f", got)
	}
	if got := resp.Segments[1].Confidence; got != 0 {
		t.Errorf("segment without words should have confidence 0, got %f", got)
	}
}

func TestBuildResponse_SpeakersSortedDistinct(t *testing.T) {
	result := &transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{
			{Speaker: "SPEAKER_01"},
			{Speaker: "SPEAKER_00"},
			{Speaker: "SPEAKER_01"},
			{Speaker: ""},
		},
	}

	resp := buildResponse("t", result, 1.0, FullOutput())

	want := []string{"SPEAKER_00", "SPEAKER_01"}
	if len(resp.Speakers) != len(want) {
		t.Fatalf("expected %v, got %v", want, resp.Speakers)
	}
	for i := range want {
		if resp.Speakers[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], resp.Speakers[i])
		}
	}
}

func TestBuildResponse_OutputFlagsStripDetail(t *testing.T) {
	result := &transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{
			{
				Start: 0, End: 2, Text: "hello world",
				Words: []transcribe.Word{
					{Word: "hello", Start: 0, End: 1, Score: 0.9},
					{Word: "world", Start: 1, End: 2, Score: 0.7},
				},
			},
		},
	}

	resp := buildResponse("t", result, 2.0, Output{})

	if len(resp.Segments[0].Words) != 0 {
		t.Errorf("expected words stripped, got %d", len(resp.Segments[0].Words))
	}
	if resp.Segments[0].Confidence != 0 {
		t.Errorf("expected confidence suppressed, got %f", resp.Segments[0].Confidence)
	}

	// Confidence stays available independently of word detail.
	resp = buildResponse("t", result, 2.0, Output{Confidence: true})
	if len(resp.Segments[0].Words) != 0 {
		t.Errorf("expected words stripped, got %d", len(resp.Segments[0].Words))
	}
	if got := resp.Segments[0].Confidence; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected confidence 0.8, got %f", got)
	}
}

func TestNewTaskID_ShortAndUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := newTaskID()
		if len(id) != 8 {
			t.Fatalf("expected 8-char id, got %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
