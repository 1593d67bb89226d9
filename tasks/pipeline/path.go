package pipeline

import (
	"regexp"
	"strings"
)

// Path is the pipeline variant chosen for a query.
type Path string

const (
	PathSimple  Path = "simple"
	PathComplex Path = "complex"
)

func (p Path) String() string {
	return string(p)
}

// Paths lists every pipeline variant in a stable order.
func Paths() []Path {
	return []Path{PathSimple, PathComplex}
}

const (
	shortQueryWords    = 5
	shortQuestionWords = 8
)

var researchKeywords = []string{
	"impact", "future", "analysis", "deep dive",
	"research", "evaluate", "global", "comparison",
	"effects", "consequences", "overview",
}

// questionPrefix requires the leading word to end at a non-word rune, where
// word runes are Unicode letters, digits and underscore.
var questionPrefix = regexp.MustCompile(`^(what|who|when|where|define)(?:[^\p{L}\p{N}_]|$)`)

// ChoosePath maps a query to a pipeline variant. Rules are checked in order:
// short queries are simple, research keywords force complex, short
// questions and definitions are simple, everything else is complex.
func ChoosePath(query string) Path {
	cleaned := strings.ToLower(strings.TrimSpace(query))
	words := len(strings.Fields(cleaned))

	if words <= shortQueryWords {
		return PathSimple
	}

	for _, kw := range researchKeywords {
		if strings.Contains(cleaned, kw) {
			return PathComplex
		}
	}

	if questionPrefix.MatchString(cleaned) && words <= shortQuestionWords {
		return PathSimple
	}

	return PathComplex
}
