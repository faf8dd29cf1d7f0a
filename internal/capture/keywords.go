package capture

import (
	"regexp"
	"sort"
	"strings"
)

// MaxKeywords caps ExtractKeywords output.
const MaxKeywords = 10

var (
	nonWord   = regexp.MustCompile(`[^\w\s]`)
	stopwords = map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
		"in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	}
)

// ExtractKeywords returns up to MaxKeywords lowercase tokens longer than three
// characters, most frequent first. Ties keep first-seen order.
func ExtractKeywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	type entry struct {
		word  string
		count int
	}
	var order []*entry
	index := map[string]*entry{}
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 3 {
			continue
		}
		if _, stop := stopwords[word]; stop {
			continue
		}
		if e, ok := index[word]; ok {
			e.count++
			continue
		}
		e := &entry{word: word, count: 1}
		index[word] = e
		order = append(order, e)
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].count > order[j].count
	})
	if len(order) > MaxKeywords {
		order = order[:MaxKeywords]
	}
	out := make([]string, 0, len(order))
	for _, e := range order {
		out = append(out, e.word)
	}
	return out
}
