package voice

import (
	"fmt"
	"strings"
)

// ChainError reports that every stage of the acquisition chain failed
// for one utterance.
type ChainError struct {
	Text string
	Errs []error
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		parts = append(parts, err.Error())
	}
	return fmt.Sprintf("voice chain exhausted for %q: %s", e.Text, strings.Join(parts, "; "))
}

func (e *ChainError) Unwrap() []error { return e.Errs }
