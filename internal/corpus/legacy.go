package corpus

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

var (
	srcConstRe   = regexp.MustCompile(`Parser\.SRC_([A-Z0-9_]+)\s*=\s*['"]([^'"]+)['"]`)
	legacyListRe = regexp.MustCompile(`Parser\.SOURCES_LEGACY_WOTC\s*=\s*(?:new Set\()?\[([\s\S]*?)\](?:\))?`)
	srcRefRe     = regexp.MustCompile(`Parser\.SRC_[A-Z0-9_]+`)
	quotedRe     = regexp.MustCompile(`['"][^'"]+['"]`)
)

const srcPrefix = "Parser.SRC_"

// ParseLegacySources extracts the legacy source ids from parser.js text.
// Constant references resolve through the Parser.SRC_* assignments found in
// the same text; unknown constants fall back to their suffix. ok is false
// when the legacy list is absent.
func ParseLegacySources(text string) (ids map[string]struct{}, ok bool) {
	values := make(map[string]string)
	for _, m := range srcConstRe.FindAllStringSubmatch(text, -1) {
		values[srcPrefix+m[1]] = m[2]
	}

	block := legacyListRe.FindStringSubmatch(text)
	if block == nil {
		return nil, false
	}

	ids = make(map[string]struct{})
	for _, ref := range srcRefRe.FindAllString(block[1], -1) {
		if v, known := values[ref]; known {
			ids[v] = struct{}{}
			continue
		}
		ids[strings.TrimPrefix(ref, srcPrefix)] = struct{}{}
	}
	for _, raw := range quotedRe.FindAllString(block[1], -1) {
		ids[raw[1:len(raw)-1]] = struct{}{}
	}
	return ids, true
}

// LegacySources locates parser.js under the primary root, or beside it, and
// parses the legacy source list. A missing file yields found == false and no
// error.
func (l *Loader) LegacySources() (ids map[string]struct{}, path string, found bool, err error) {
	root := l.dirs[domain.Primary]
	candidates := []string{
		filepath.Join(root, "js", "parser.js"),
		filepath.Join(filepath.Dir(filepath.Clean(root)), "js", "parser.js"),
	}
	for _, c := range candidates {
		data, readErr := os.ReadFile(c)
		if errors.Is(readErr, fs.ErrNotExist) {
			continue
		}
		if readErr != nil {
			return nil, c, false, &LoadError{Stage: "legacy-sources", Lang: domain.Primary, Path: c, Err: readErr}
		}
		ids, ok := ParseLegacySources(string(data))
		if !ok {
			return nil, c, false, nil
		}
		return ids, c, true, nil
	}
	return nil, "", false, nil
}
