package catalog

import (
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// templatePrefix marks localized names that are unrendered templates.
const templatePrefix = "{!@ "

// SourceInfo is one entry of the source mapping table.
type SourceInfo struct {
	ID            string `json:"id"`
	Name          string `json:"source_name"`
	Published     string `json:"source_published"`
	SecondaryName string `json:"source_zhname,omitempty"`
	Newest        bool   `json:"newest"`
}

// SourceMap merges book and adventure metadata of both corpora into a table
// keyed by source id. Sources listed in legacy are not the newest edition.
func SourceMap(books, adventures corpus.Pair, legacy map[string]struct{}) map[string]SourceInfo {
	out := make(map[string]SourceInfo)
	addSources(out, books.Primary.Records("book"), books.Secondary.Records("book"))
	addSources(out, adventures.Primary.Records("adventure"), adventures.Secondary.Records("adventure"))
	for id, info := range out {
		_, old := legacy[id]
		info.Newest = !old
		out[id] = info
	}
	return out
}

func addSources(out map[string]SourceInfo, primary, secondary []domain.Record) {
	for _, r := range primary {
		id, name, published := r.String(fieldID), r.Name(), r.String(fieldPublished)
		if id == "" || name == "" || published == "" {
			continue
		}
		out[id] = SourceInfo{ID: id, Name: name, Published: published}
	}
	for _, r := range secondary {
		id, name := r.String(fieldID), r.Name()
		if id == "" || name == "" {
			continue
		}
		templated := strings.HasPrefix(name, templatePrefix)
		localized := name
		if templated {
			localized = ""
		}
		if info, ok := out[id]; ok {
			if localized != "" {
				info.SecondaryName = localized
				out[id] = info
			}
			continue
		}
		info := SourceInfo{ID: id, Name: name, Published: r.String(fieldPublished), SecondaryName: localized}
		if templated {
			info.Name = id
		}
		out[id] = info
	}
}
