package canonical

import "github.com/pawfacts/backend/internal/platform/logger"

// Engine turns one raw ingredient string into an ordered list of
// canonical/raw tokens. It is deterministic and does no I/O; the dictionary
// is fixed at construction time.
type Engine struct {
	matcher *PhraseMatcher
	log     *logger.Logger
}

// NewEngine creates a canonicalization engine over the given dictionary.
func NewEngine(dict *Dictionary, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		matcher: NewPhraseMatcher(dict),
		log:     log.With("component", "canonical"),
	}
}

// Canonicalise segments the raw string and runs the phrase matcher per
// segment, preserving segment order. The result has exactly one entry per
// segment; empty input yields an empty list.
func (e *Engine) Canonicalise(raw string) []string {
	e.log.Debug("canonicalising ingredients", "raw", raw)

	segments := Segment(raw)
	output := make([]string, 0, len(segments))
	for _, segment := range segments {
		output = append(output, e.matcher.Match(segment))
	}

	e.log.Debug("canonical result", "ingredients", output)
	return output
}
