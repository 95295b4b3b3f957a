package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
)

const (
	fieldID           = "id"
	fieldContents     = "contents"
	fieldHeaders      = "headers"
	fieldGroup        = "group"
	fieldPublished    = "published"
	fieldAbbreviation = "abbreviation"
)

// Books merges books.json. Books are keyed by id and carry their chapter
// headers instead of full contents.
func (c *Catalog) Books(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindBook,
		dataType: DataTypeBook,
		key:      bookKey,
		title:    nameTitle,
		extend: func(rec *domain.MergedRecord, e entry, _ i18n.KeySets) {
			rec.MainSource.Page = 0
			rec.Attributes = map[string]any{
				fieldGroup:     e.Primary[fieldGroup],
				fieldPublished: e.Primary[fieldPublished],
			}
		},
	}
	col, _, err := c.collect(ctx, spec, bookView(p.Primary.Records("book")), bookView(p.Secondary.Records("book")))
	return col, err
}

func bookKey(r domain.Record) (string, error) {
	id := strings.TrimSpace(r.String(fieldID))
	if id == "" {
		return "", fmt.Errorf("book %q has no id: %w", r.Name(), domain.ErrMissingSource)
	}
	return id, nil
}

// bookView reduces book records to the fields the wiki pages use.
func bookView(books []domain.Record) []domain.Record {
	out := make([]domain.Record, 0, len(books))
	for _, b := range books {
		v := domain.Record{
			domain.FieldName: b[domain.FieldName],
			fieldHeaders:     bookHeaders(b[fieldContents]),
		}
		for _, k := range []string{fieldID, domain.FieldSource, fieldGroup, fieldPublished} {
			if b.Has(k) {
				v[k] = b[k]
			}
		}
		out = append(out, v)
	}
	return out
}

// bookHeaders flattens table-of-contents entries into name/subHeaders
// pairs. A sub-header is either a bare string or an object with "header".
func bookHeaders(raw any) []any {
	contents, _ := raw.([]any)
	out := make([]any, 0, len(contents))
	for _, item := range contents {
		ch, ok := item.(map[string]any)
		if !ok {
			continue
		}
		subs := []any{}
		list, _ := ch[fieldHeaders].([]any)
		for _, h := range list {
			switch v := h.(type) {
			case string:
				subs = append(subs, map[string]any{"name": v})
			case map[string]any:
				subs = append(subs, map[string]any{"name": v["header"]})
			}
		}
		out = append(out, map[string]any{"name": ch["name"], "subHeaders": subs})
	}
	return out
}

// Feats merges feats.json.
func (c *Catalog) Feats(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindFeat,
		dataType: DataTypeFeat,
		key:      domain.CanonicalKey,
		title:    nameTitle,
	}
	col, _, err := c.collect(ctx, spec, p.Primary.Records("feat"), p.Secondary.Records("feat"))
	return col, err
}

// ItemProperties merges the itemProperty list of items-base.json.
func (c *Catalog) ItemProperties(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindItemProperty,
		dataType: DataTypeItemProperty,
		key:      abbreviationKey,
		title:    propertyTitle,
		extend:   abbreviationAttr,
	}
	primary, secondary := p.Primary.Records("itemProperty"), p.Secondary.Records("itemProperty")
	if len(secondary) == 0 {
		c.log.Warn("no secondary item properties found")
	}
	col, _, err := c.collect(ctx, spec, primary, secondary)
	return col, err
}

// ItemTypes merges the itemType list of items-base.json.
func (c *Catalog) ItemTypes(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindItemType,
		dataType: DataTypeItemType,
		key:      abbreviationKey,
		title:    nameTitle,
		extend:   abbreviationAttr,
	}
	col, _, err := c.collect(ctx, spec, p.Primary.Records("itemType"), p.Secondary.Records("itemType"))
	return col, err
}

// abbreviationKey keys properties and types by "abbreviation|source".
func abbreviationKey(r domain.Record) (string, error) {
	abbr := strings.TrimSpace(r.String(fieldAbbreviation))
	src := r.Source()
	if src == "" {
		return "", fmt.Errorf("abbreviation %q: %w", abbr, domain.ErrMissingSource)
	}
	if abbr == "" {
		return "", fmt.Errorf("abbreviation of source %q: %w", src, domain.ErrMissingName)
	}
	return domain.JoinKey(abbr, src), nil
}

func abbreviationAttr(rec *domain.MergedRecord, e entry, _ i18n.KeySets) {
	rec.Attributes = map[string]any{fieldAbbreviation: e.Primary.String(fieldAbbreviation)}
}

// propertyTitle is the name of the first named "entries" block, else the
// record name, else the abbreviation.
func propertyTitle(r domain.Record) string {
	if entries := r.Entries(); len(entries) > 0 {
		if first, ok := entries[0].(map[string]any); ok {
			fe := domain.Record(first)
			if fe.String(domain.FieldType) == "entries" && fe.Name() != "" {
				return fe.Name()
			}
		}
	}
	if n := r.Name(); n != "" {
		return n
	}
	return r.String(fieldAbbreviation)
}
