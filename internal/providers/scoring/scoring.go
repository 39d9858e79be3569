// Package scoring rates avatar replies on a 0..100 scale.
package scoring

import (
	"context"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

type Context struct {
	CustomerUtterance string
	CustomerMood      models.Mood
	Objectives        []string
}

type Scorer interface {
	Score(ctx context.Context, candidate string, sc Context) (int, error)
}

func Clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "with": {}, "what": {}, "about": {}, "their": {},
	"your": {}, "this": {}, "from": {}, "into": {}, "without": {}, "most": {}, "clear": {},
}

func significantTokens(s string) []string {
	var out []string
	for _, w := range strings.Fields(utils.NormalizeUtterance(s)) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, stem(w))
	}
	return out
}

// stem trims a few common suffixes so "explain" matches "explaining".
func stem(w string) string {
	for _, suf := range []string{"ing", "ed", "es", "s"} {
		if len(w) > len(suf)+3 && strings.HasSuffix(w, suf) {
			return strings.TrimSuffix(w, suf)
		}
	}
	return w
}

// ObjectiveTouched reports whether at least half of the objective's
// significant words show up in text.
func ObjectiveTouched(objective, text string) bool {
	want := significantTokens(objective)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, t := range significantTokens(text) {
		have[t] = struct{}{}
	}
	hit := 0
	for _, w := range want {
		if _, ok := have[w]; ok {
			hit++
		}
	}
	return hit*2 >= len(want)
}
