package monitor

import (
	"strconv"
	"strings"
	"time"

	"appwatch/pkg/tghtml"
)

const (
	// DefaultNotesMaxLen caps release notes per app block.
	DefaultNotesMaxLen = 500

	updatedTimeFormat = "2006-01-02 15:04 UTC"

	iconFirst   = "\U0001F195" // 🆕
	iconRelease = "\U0001F4F1" // 📱
)

// Digest is the single consolidated notification for one cycle.
type Digest struct {
	Title  string
	Blocks []DigestBlock
}

// DigestBlock is one app's section of the digest.
type DigestBlock struct {
	Kind      ChangeKind
	Name      string
	Developer string
	Version   string
	Updated   time.Time
	URL       string
	// Notes is already trimmed and truncated; empty means no notes block.
	Notes string
}

type digestOptions struct {
	// NotesMaxLen <= 0 means DefaultNotesMaxLen.
	NotesMaxLen int
}

// buildDigest turns the cycle's changes into one digest, preserving
// input order. It returns nil for an empty change list: the system
// never sends an empty or placeholder notification.
//
// Building is pure; the same changes always produce an identical digest.
func buildDigest(changes []Change, opts digestOptions) *Digest {
	if len(changes) == 0 {
		return nil
	}

	maxNotes := opts.NotesMaxLen
	if maxNotes <= 0 {
		maxNotes = DefaultNotesMaxLen
	}

	anyFirst := false
	blocks := make([]DigestBlock, 0, len(changes))
	for _, ch := range changes {
		if ch.Kind == FirstObservation {
			anyFirst = true
		}
		blocks = append(blocks, DigestBlock{
			Kind:      ch.Kind,
			Name:      ch.Name,
			Developer: ch.Developer,
			Version:   ch.Version,
			Updated:   ch.Updated,
			URL:       ch.URL,
			Notes:     tghtml.TruncRunes(strings.TrimSpace(ch.ReleaseNotes), maxNotes),
		})
	}

	icon := iconRelease
	if anyFirst {
		icon = iconFirst
	}
	title := icon + " App updates (" + strconv.Itoa(len(changes)) + ")"

	return &Digest{Title: title, Blocks: blocks}
}

// Render produces the Telegram HTML body. It is deterministic: equal
// digests render byte-identical output.
func (d *Digest) Render() string {
	var b strings.Builder
	b.WriteString(tghtml.B(d.Title).String())

	for i, blk := range d.Blocks {
		if i == 0 {
			b.WriteString("\n")
		} else {
			// Separator between consecutive blocks, never after the last.
			b.WriteString("\n———\n")
		}

		icon := iconRelease
		if blk.Kind == FirstObservation {
			icon = iconFirst
		}
		b.WriteString("\n")
		b.WriteString(icon)
		b.WriteString(" ")
		b.WriteString(tghtml.B(blk.Name).String())
		if blk.Developer != "" {
			b.WriteString(" – ")
			b.WriteString(tghtml.Esc(blk.Developer).String())
		}
		b.WriteString("\nVersion: ")
		b.WriteString(tghtml.Code(blk.Version).String())
		if !blk.Updated.IsZero() {
			b.WriteString("\nUpdated: ")
			b.WriteString(blk.Updated.UTC().Format(updatedTimeFormat))
		}
		if blk.URL != "" {
			b.WriteString("\n")
			b.WriteString(tghtml.Link("App Store", blk.URL).String())
		}
		if blk.Notes != "" {
			b.WriteString("\n")
			b.WriteString(tghtml.I("What's new:").String())
			b.WriteString("\n")
			b.WriteString(tghtml.Pre(blk.Notes).String())
		}
		b.WriteString("\n")
	}

	return b.String()
}
