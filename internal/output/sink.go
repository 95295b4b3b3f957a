// Package output persists the merged records, collections and diagnostics
// of a run.
package output

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/compare"
)

// Sink receives the output of a run. Implementations must be safe to call
// from one goroutine at a time; they may parallelize internally.
type Sink interface {
	// WriteRecords stores one document per record and returns how many
	// were written.
	WriteRecords(ctx context.Context, kind string, records []domain.MergedRecord) (int, error)
	// WriteCollection stores a collection document under name.
	WriteCollection(ctx context.Context, name string, c Collection) error
	// WriteAudit stores the comparison report and anomaly log.
	WriteAudit(ctx context.Context, a Audit) error
	Close() error
}

// Collection is the envelope of a collection document.
type Collection struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Audit is the diagnostic output of a run.
type Audit struct {
	Report    *compare.Report
	Anomalies []audit.Anomaly
}

// CollectionName is the document name of a kind's collection.
func CollectionName(kind string) string { return kind + "Collection" }

// recordPrefixes maps data types to their per-record file prefix.
var recordPrefixes = map[string]string{
	"item":  "item",
	"spell": "Spell",
}

// RecordPath returns the path of a record document relative to the output
// root: "<dataType>/<prefix>_1_<source>_1_<title>.json".
func RecordPath(rec domain.MergedRecord) string {
	prefix, ok := recordPrefixes[rec.DataType]
	if !ok {
		prefix = rec.DataType
	}
	name := fmt.Sprintf("%s_1_%s_1_%s.json", prefix, EscapeTitle(rec.MainSource.Source), EscapeTitle(rec.Title()))
	return rec.DataType + "/" + name
}

// titleInvalid are the characters MediaWiki rejects in page titles, once
// "|" and "/" have been escaped.
const titleInvalid = "#<>[]{}"

// EscapeTitle turns a display title into a file-safe wiki title. "|"
// becomes "@", "/" becomes "__", invalid and control characters are dropped,
// runs of whitespace collapse to one space and the first letter is upper
// cased.
func EscapeTitle(title string) string {
	title = strings.ReplaceAll(title, "|", "@")
	title = strings.ReplaceAll(title, "/", "__")

	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range title {
		switch {
		case strings.ContainsRune(titleInvalid, r), unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	out := b.String()
	if first, size := utf8.DecodeRuneInString(out); first != utf8.RuneError {
		out = string(unicode.ToUpper(first)) + out[size:]
	}
	return out
}
