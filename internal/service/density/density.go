// Package density scores how information-dense a generated answer is.
package density

import (
	"regexp"
	"strings"
)

var (
	numberPattern = regexp.MustCompile(`\d+\.?\d*`)
	termPattern   = regexp.MustCompile(`(?i)\b(nitrogen|phosphate|potassium|pH|NPK|rainfall|soil|nutrient|kg|acre|mm|deviation|TNAU|KAU|laterite|loam)\b`)
)

const (
	numberWeight = 2.0
	termWeight   = 1.5
)

// Score returns min(1, (numbers*2 + domain terms*1.5) / words). It is always
// in [0,1] and is 0 for text with no words. The score is an observability
// signal only.
func Score(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}

	numbers := len(numberPattern.FindAllString(text, -1))
	terms := len(termPattern.FindAllString(text, -1))

	score := (float64(numbers)*numberWeight + float64(terms)*termWeight) / float64(words)
	if score > 1 {
		return 1
	}
	return score
}
