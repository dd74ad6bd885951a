package diarize

import (
	"testing"

	"github.com/kbukum/whisperlm/internal/transcribe"
)

func TestAssignSpeakers_DominantOverlap(t *testing.T) {
	turns := []Turn{
		{Speaker: "SPEAKER_00", Start: 0, End: 2},
		{Speaker: "SPEAKER_01", Start: 2, End: 5},
	}
	segments := []transcribe.Segment{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 1.5, End: 4.5, Text: "world"},
	}

	AssignSpeakers(turns, segments)

	if segments[0].Speaker != "SPEAKER_00" {
		t.Errorf("segment 0: expected SPEAKER_00, got %q", segments[0].Speaker)
	}
	// 0.5s overlap with SPEAKER_00, 2.5s with SPEAKER_01.
	if segments[1].Speaker != "SPEAKER_01" {
		t.Errorf("segment 1: expected SPEAKER_01, got %q", segments[1].Speaker)
	}
}

func TestAssignSpeakers_WordsAttributed(t *testing.T) {
	turns := []Turn{
		{Speaker: "SPEAKER_00", Start: 0, End: 1},
		{Speaker: "SPEAKER_01", Start: 1, End: 2},
	}
	segments := []transcribe.Segment{
		{
			Start: 0, End: 2, Text: "yes no",
			Words: []transcribe.Word{
				{Word: "yes", Start: 0.1, End: 0.5},
				{Word: "no", Start: 1.2, End: 1.6},
				{Word: "hmm"}, // no timestamps, dropped by alignment
			},
		},
	}

	AssignSpeakers(turns, segments)

	if got := segments[0].Words[0].Speaker; got != "SPEAKER_00" {
		t.Errorf("word 0: expected SPEAKER_00, got %q", got)
	}
	if got := segments[0].Words[1].Speaker; got != "SPEAKER_01" {
		t.Errorf("word 1: expected SPEAKER_01, got %q", got)
	}
	if got := segments[0].Words[2].Speaker; got != "" {
		t.Errorf("word without timestamps should stay unattributed, got %q", got)
	}
}

func TestAssignSpeakers_NoOverlapLeavesEmpty(t *testing.T) {
	turns := []Turn{{Speaker: "SPEAKER_00", Start: 10, End: 12}}
	segments := []transcribe.Segment{{Start: 0, End: 1, Text: "silence"}}

	AssignSpeakers(turns, segments)

	if segments[0].Speaker != "" {
		t.Errorf("expected no speaker, got %q", segments[0].Speaker)
	}
}

func TestAssignSpeakers_NoTurnsIsNoop(t *testing.T) {
	segments := []transcribe.Segment{{Start: 0, End: 1, Text: "hello", Speaker: ""}}
	AssignSpeakers(nil, segments)
	if segments[0].Speaker != "" {
		t.Errorf("expected no speaker, got %q", segments[0].Speaker)
	}
}

func TestSpeakers_SortedDistinct(t *testing.T) {
	segments := []transcribe.Segment{
		{Speaker: "SPEAKER_01"},
		{Speaker: "SPEAKER_00"},
		{Speaker: "SPEAKER_01"},
		{Speaker: ""},
	}

	got := Speakers(segments)
	want := []string{"SPEAKER_00", "SPEAKER_01"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
