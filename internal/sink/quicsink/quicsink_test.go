package quicsink

import (
	"bytes"
	"testing"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	rec := Record{Path: "artifacts/1/2.5000", Stats: "groups=1", Added: true, Index: "0/0/0", CaseHex: "deadbeef"}

	if err := writeFrame(&buf, rec); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	got, err := readFrame(&buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}

	if got.Path != rec.Path || got.Stats != rec.Stats || got.Added != rec.Added ||
		got.Index != rec.Index || got.CaseHex != rec.CaseHex {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
}

func TestWriteReadMultipleFramesInSequence(t *testing.T) {
	var buf bytes.Buffer

	recs := []Record{
		{Path: "a", Stats: "s1"},
		{Path: "b", Stats: "s2", Added: true},
		{Path: "c", Stats: "s3", Removed: []string{"1", "2"}},
	}

	for _, r := range recs {
		if err := writeFrame(&buf, r); err != nil {
			t.Fatalf("writeFrame: %v", err)
		}
	}

	for _, want := range recs {
		got, err := readFrame(&buf)
		if err != nil {
			t.Fatalf("readFrame: %v", err)
		}

		if got.Path != want.Path || got.Stats != want.Stats || got.Added != want.Added {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
}
