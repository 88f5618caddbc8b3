package pipeline

import (
	"regexp"
	"strings"
)

// Class routes a transcript to the race or the fast path.
type Class string

const (
	ClassGreeting       Class = "greeting"
	ClassShortNonDomain Class = "short_non_domain"
	ClassNormal         Class = "normal"
)

// shortQueryWords is the word count below which a query without any farming
// term skips the race.
const shortQueryWords = 4

var (
	greetingPattern = regexp.MustCompile(`(?i)\b(hello|hi|hey|test|testing)\b|ஹலோ|வணக்கம்|புரியுதா|கேக்குதா|எப்படி|நிவேதா`)

	// Substring matches, so "acres" and "paddy's" count.
	domainPattern = regexp.MustCompile(`(?i)coconut|rice|banana|fertilizer|soil|pest|crop|harvest|irrigation|rainfall|paddy|sugarcane|turmeric|tea|pepper|rubber|cotton|groundnut|nitrogen|phosphate|potassium|NPK|pH|acre|hectare|yield|நெல்|தேங்காய்|வாழை|வாழ்க்கை|வாழ்கை|பூச்சி|மரம்|மத்து`)
)

// Classify labels a transcript. Greetings and mic checks win over everything;
// otherwise a query of fewer than four words with no farming term is short.
func Classify(transcript string) Class {
	if greetingPattern.MatchString(transcript) {
		return ClassGreeting
	}
	if len(strings.Fields(transcript)) < shortQueryWords && !domainPattern.MatchString(transcript) {
		return ClassShortNonDomain
	}
	return ClassNormal
}

// FastPath reports whether the class bypasses the race.
func (c Class) FastPath() bool {
	return c == ClassGreeting || c == ClassShortNonDomain
}
