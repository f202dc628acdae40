package monitor

import (
	"strings"
	"testing"
	"time"
)

func change(id string, kind ChangeKind, notes string) Change {
	return Change{
		AppInfo: AppInfo{
			AppID:        id,
			Name:         "App " + id,
			Developer:    "Dev " + id,
			Version:      "1.0",
			Updated:      time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
			URL:          "https://apps.example.com/" + id,
			ReleaseNotes: notes,
		},
		Kind: kind,
	}
}

func TestBuildDigestEmpty(t *testing.T) {
	if d := buildDigest(nil, digestOptions{}); d != nil {
		t.Fatalf("empty change list must produce no digest, got %+v", d)
	}
}

func TestBuildDigestTitle(t *testing.T) {
	d := buildDigest([]Change{change("A", NewRelease, "")}, digestOptions{})
	if !strings.Contains(d.Title, "(1)") || !strings.HasPrefix(d.Title, iconRelease) {
		t.Fatalf("all-NewRelease title: %q", d.Title)
	}

	d = buildDigest([]Change{change("A", NewRelease, ""), change("B", FirstObservation, "")}, digestOptions{})
	if !strings.Contains(d.Title, "(2)") || !strings.HasPrefix(d.Title, iconFirst) {
		t.Fatalf("mixed title must carry first-observation icon: %q", d.Title)
	}
}

func TestRenderBlocksAndSeparators(t *testing.T) {
	changes := []Change{
		change("A", NewRelease, ""),
		change("B", FirstObservation, ""),
		change("C", NewRelease, ""),
	}
	d := buildDigest(changes, digestOptions{})
	out := d.Render()

	// Exactly one visual block per change, in input order.
	posA := strings.Index(out, "App A")
	posB := strings.Index(out, "App B")
	posC := strings.Index(out, "App C")
	if posA < 0 || posB < 0 || posC < 0 || !(posA < posB && posB < posC) {
		t.Fatalf("block order wrong: A=%d B=%d C=%d\n%s", posA, posB, posC, out)
	}

	// n-1 separators, none after the last block.
	if n := strings.Count(out, "———"); n != len(changes)-1 {
		t.Fatalf("separators = %d, want %d", n, len(changes)-1)
	}
	if strings.HasSuffix(strings.TrimSpace(out), "———") {
		t.Fatal("separator after last block")
	}

	if !strings.Contains(out, "Updated: 2025-03-14 09:26 UTC") {
		t.Fatalf("timestamp formatting wrong:\n%s", out)
	}
}

func TestRenderDeterministic(t *testing.T) {
	changes := []Change{change("A", NewRelease, "notes here"), change("B", FirstObservation, "")}
	a := buildDigest(changes, digestOptions{}).Render()
	b := buildDigest(changes, digestOptions{}).Render()
	if a != b {
		t.Fatal("render is not byte-identical for identical input")
	}
}

func TestNotesTruncation(t *testing.T) {
	long := strings.Repeat("x", 600)
	d := buildDigest([]Change{change("A", NewRelease, long)}, digestOptions{NotesMaxLen: 500})
	notes := d.Blocks[0].Notes
	if !strings.HasSuffix(notes, "…") {
		t.Fatalf("truncated notes must end with marker, got %q", notes[len(notes)-10:])
	}
	if got := len([]rune(strings.TrimSuffix(notes, "…"))); got != 500 {
		t.Fatalf("truncated to %d runes, want 500", got)
	}

	exact := strings.Repeat("y", 500)
	d = buildDigest([]Change{change("A", NewRelease, exact)}, digestOptions{NotesMaxLen: 500})
	if d.Blocks[0].Notes != exact {
		t.Fatal("notes at the limit must pass through unmodified")
	}
}

func TestWhitespaceNotesProduceNoBlock(t *testing.T) {
	d := buildDigest([]Change{change("A", NewRelease, "  \n\t ")}, digestOptions{})
	if d.Blocks[0].Notes != "" {
		t.Fatalf("whitespace-only notes must be dropped, got %q", d.Blocks[0].Notes)
	}
	if strings.Contains(d.Render(), "What's new") {
		t.Fatal("render must omit the notes block")
	}
}

func TestRenderOmitsAbsentTimestamp(t *testing.T) {
	ch := change("A", NewRelease, "")
	ch.Updated = time.Time{}
	out := buildDigest([]Change{ch}, digestOptions{}).Render()
	if strings.Contains(out, "Updated:") {
		t.Fatalf("zero Updated must omit the line:\n%s", out)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	ch := change("A", NewRelease, "")
	ch.Name = "<script>alert(1)</script>"
	out := buildDigest([]Change{ch}, digestOptions{}).Render()
	if strings.Contains(out, "<script>") {
		t.Fatal("app name not escaped")
	}
}
