// Package capacity estimates how many accelerators one server instance
// needs for a given model identifier.
package capacity

import (
	"regexp"
	"strconv"
	"strings"
)

// sizeHintRe matches a parameter-count hint such as "8B", "70b" or "1.5B"
// embedded in a model identifier.
var sizeHintRe = regexp.MustCompile(`(\d+(?:\.\d+)?)[bB](?:$|[^a-zA-Z0-9])`)

// EstimateParallelism maps a model's size hint to the accelerator count one
// instance should span, clamped to available. This is a best-effort
// heuristic: a wrong estimate surfaces as a launch failure, not an error
// here. Models without a parsable hint default to 1.
func EstimateParallelism(modelID string, available int) int {
	if available < 1 {
		available = 1
	}
	par := 1
	if size, ok := parseSizeHint(modelID); ok {
		switch {
		case size < 13:
			par = 1
		case size < 35:
			par = 2
		case size < 80:
			par = 4
		default:
			par = 8
		}
	}
	if par > available {
		par = available
	}
	return par
}

// parseSizeHint extracts the billions-of-parameters hint from an identifier.
// The last match wins: "llama-3.1-70B-Instruct" hints 70, not 3.1.
func parseSizeHint(modelID string) (float64, bool) {
	matches := sizeHintRe.FindAllStringSubmatch(strings.TrimSpace(modelID), -1)
	if len(matches) == 0 {
		return 0, false
	}
	raw := matches[len(matches)-1][1]
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return size, true
}
