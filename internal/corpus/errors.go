package corpus

import (
	"fmt"

	"github.com/pttsw/wiki-dnd-parser/internal/domain"
)

// LoadError reports which loading stage failed. It matches both
// domain.ErrCorpusLoad and the underlying cause under errors.Is.
type LoadError struct {
	Stage string
	Lang  domain.Lang
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s) %s: %v", e.Stage, e.Lang, e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{domain.ErrCorpusLoad, e.Err}
}
