// Package search ranks definition ids against a free-form query.
package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// Match is a single ranked search result.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// scoreThreshold filters out results with no meaningful similarity.
const scoreThreshold = 0.3

// Rank scores every definition id against the query and returns up to limit
// matches, best first. Scoring combines whole-string Levenshtein similarity
// with token-wise matching so both "A.helper" and "helper a" find "A.helper".
func Rank(query string, ids []string, limit int) []Match {
	if query == "" || len(ids) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	queryLower := strings.ToLower(query)
	queryTokens := tokenize(queryLower)

	var results []Match
	for _, id := range ids {
		if id == "" {
			continue
		}
		s := score(queryLower, queryTokens, id)
		if s > scoreThreshold {
			results = append(results, Match{ID: id, Score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func score(queryLower string, queryTokens map[string]bool, id string) float64 {
	idLower := strings.ToLower(id)

	if queryLower == idLower {
		return 1.0
	}
	if strings.Contains(idLower, queryLower) {
		return 0.95
	}

	// Whole-string similarity catches near-exact ids with a typo.
	dist := levenshtein.Distance(queryLower, idLower, nil)
	maxLen := math.Max(float64(len(queryLower)), float64(len(idLower)))
	global := 1.0 - float64(dist)/maxLen
	if global < 0 {
		global = 0
	}

	// Token similarity handles "bag of words" queries against ids like
	// "ClassName.method_name".
	idTokens := tokenize(idLower)
	total := 0.0
	for qt := range queryTokens {
		best := 0.0
		if idTokens[qt] {
			best = 1.0
		} else {
			for it := range idTokens {
				d := levenshtein.Distance(qt, it, nil)
				tMax := math.Max(float64(len(qt)), float64(len(it)))
				if s := 1.0 - float64(d)/tMax; s > best {
					best = s
				}
			}
		}
		total += best
	}
	tokenScore := 0.0
	if len(queryTokens) > 0 {
		tokenScore = total / float64(len(queryTokens))
	}

	return math.Max(global, tokenScore)
}

// tokenize splits an id or query into lowercase tokens on separators and
// camelCase boundaries.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens[strings.ToLower(cur.String())] = true
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			flush()
		case unicode.IsUpper(r) && cur.Len() > 0:
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
