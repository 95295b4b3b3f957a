// Package corpus reads the primary and secondary JSON trees into decoded
// documents.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// Document is one decoded JSON file.
type Document map[string]any

// Records returns the array under key as records. Non-object elements are
// dropped.
func (d Document) Records(key string) []domain.Record {
	list, _ := d[key].([]any)
	out := make([]domain.Record, 0, len(list))
	for _, raw := range list {
		if m, ok := raw.(map[string]any); ok {
			out = append(out, domain.Record(m))
		}
	}
	return out
}

// Strings returns the top-level string values, as in a source-to-file
// index.
func (d Document) Strings() map[string]string {
	out := make(map[string]string, len(d))
	for k, v := range d {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Pair is the same file read from both corpora.
type Pair struct {
	Primary   Document
	Secondary Document
}

// Loader reads files relative to the two corpus roots.
type Loader struct {
	dirs map[domain.Lang]string
	log  *slog.Logger
}

// NewLoader creates a Loader for the primary and secondary roots.
func NewLoader(primaryDir, secondaryDir string, log *slog.Logger) *Loader {
	return &Loader{
		dirs: map[domain.Lang]string{
			domain.Primary:   primaryDir,
			domain.Secondary: secondaryDir,
		},
		log: log,
	}
}

// Dir returns the root directory of lang.
func (l *Loader) Dir(lang domain.Lang) string { return l.dirs[lang] }

// LoadPair reads rel from both corpora concurrently. A missing or malformed
// file on either side is a *LoadError.
func (l *Loader) LoadPair(ctx context.Context, stage, rel string) (Pair, error) {
	return l.loadPair(ctx, stage, rel, false)
}

// LoadOptionalPair is LoadPair where a missing file reads as an empty
// document.
func (l *Loader) LoadOptionalPair(ctx context.Context, stage, rel string) (Pair, error) {
	return l.loadPair(ctx, stage, rel, true)
}

func (l *Loader) loadPair(ctx context.Context, stage, rel string, optional bool) (Pair, error) {
	var p Pair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p.Primary, err = l.load(gctx, domain.Primary, stage, rel, optional)
		return err
	})
	g.Go(func() error {
		var err error
		p.Secondary, err = l.load(gctx, domain.Secondary, stage, rel, optional)
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// LoadPairs reads several files pairwise with at most limit files in flight.
// The result order follows rels.
func (l *Loader) LoadPairs(ctx context.Context, stage string, rels []string, limit int) ([]Pair, error) {
	out := make([]Pair, len(rels))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, rel := range rels {
		g.Go(func() error {
			p, err := l.LoadPair(gctx, stage, rel)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadOne reads rel from a single corpus.
func (l *Loader) LoadOne(ctx context.Context, lang domain.Lang, stage, rel string, optional bool) (Document, error) {
	return l.load(ctx, lang, stage, rel, optional)
}

func (l *Loader) load(ctx context.Context, lang domain.Lang, stage, rel string, optional bool) (Document, error) {
	path := filepath.Join(l.dirs[lang], filepath.FromSlash(rel))
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Stage: stage, Lang: lang, Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			l.debug("optional corpus file missing", lang, path)
			return Document{}, nil
		}
		return nil, &LoadError{Stage: stage, Lang: lang, Path: path, Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Stage: stage, Lang: lang, Path: path, Err: fmt.Errorf("decode json: %w", err)}
	}
	if doc == nil {
		doc = Document{}
	}
	l.debug("corpus file loaded", lang, path, slog.Int("bytes", len(data)))
	return doc, nil
}

func (l *Loader) debug(msg string, lang domain.Lang, path string, attrs ...any) {
	if l.log == nil {
		return
	}
	args := append([]any{slog.String("lang", lang.String()), slog.String("path", path)}, attrs...)
	l.log.Debug(msg, args...)
}
