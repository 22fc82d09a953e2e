// Package extract recovers a JSON document from free-form model output.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is wrapped by every ExtractionError.
var ErrNoJSON = errors.New("no JSON object or array found in response")

// fenceMarker matches a markdown code fence and an optional language tag.
var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// ExtractionError reports that no JSON-shaped span exists in the output.
type ExtractionError struct {
	Raw string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%v (%d chars of output)", ErrNoJSON, len(e.Raw))
}

func (e *ExtractionError) Unwrap() error { return ErrNoJSON }

// Extract strips code fences and surrounding prose from raw and returns the
// JSON candidate. When the cleaned text is not valid JSON on its own, the
// candidate is the greedy span from the first '{' or '[' to the last
// matching closer. Such a span may still fail to parse; callers decide what
// to do with it.
//
// Several independent JSON blocks in one response collapse into a single
// span covering all of them.
func Extract(raw string) (string, error) {
	cleaned := strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
	if cleaned != "" && json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}

	if span, ok := greedySpan(cleaned); ok {
		return span, nil
	}
	return "", &ExtractionError{Raw: raw}
}

// greedySpan returns the longest text from the earliest opener that has a
// matching closer somewhere after it. For an opener at a given offset an
// object span is preferred over an array span.
func greedySpan(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		var closer byte
		switch s[i] {
		case '{':
			closer = '}'
		case '[':
			closer = ']'
		default:
			continue
		}
		if j := strings.LastIndexByte(s, closer); j > i {
			return s[i : j+1], true
		}
	}
	return "", false
}
