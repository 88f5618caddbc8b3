// Package knowledge partitions the agronomy corpus into titled sections and
// selects the slice of it that is relevant to a farmer's query.
package knowledge

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed corpus/knowledge.txt
var defaultCorpus string

// Unavailable is the text served when no corpus could be loaded.
const Unavailable = "No knowledge base available."

// UnavailableTitle keys the pseudo-section of an index with no corpus.
const UnavailableTitle = "KNOWLEDGE UNAVAILABLE"

// headerPattern matches "=== TITLE ===" on a line of its own.
var headerPattern = regexp.MustCompile(`(?m)^===[ \t]*(.+?)[ \t]*===[ \t]*\r?$`)

// Section is one titled block of the corpus.
type Section struct {
	// Title is the uppercased header text.
	Title string
	// Body is the text after the header line, trimmed.
	Body string
	// Text is the header line and body together, trimmed. This is what
	// gets placed into generation context.
	Text string
}

// Index is an immutable, title-keyed view of the corpus. It is safe for
// concurrent readers.
type Index struct {
	sections []Section
	byTitle  map[string]int
	full     string
}

// Load splits corpus into sections. A blank corpus yields an index holding a
// single pseudo-section with the Unavailable sentinel.
func Load(corpus string) *Index {
	if strings.TrimSpace(corpus) == "" {
		return unavailable()
	}

	idx := &Index{
		byTitle: make(map[string]int),
		full:    corpus,
	}

	matches := headerPattern.FindAllStringSubmatchIndex(corpus, -1)
	for i, m := range matches {
		start, headerEnd := m[0], m[1]
		end := len(corpus)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		title := strings.ToUpper(strings.TrimSpace(corpus[m[2]:m[3]]))
		sec := Section{
			Title: title,
			Body:  strings.TrimSpace(corpus[headerEnd:end]),
			Text:  strings.TrimSpace(corpus[start:end]),
		}

		// A repeated header replaces the earlier body but keeps its position.
		if pos, ok := idx.byTitle[title]; ok {
			idx.sections[pos] = sec
			continue
		}
		idx.byTitle[title] = len(idx.sections)
		idx.sections = append(idx.sections, sec)
	}

	log.Info().
		Str("component", "knowledge").
		Int("chars", len(corpus)).
		Int("sections", len(idx.sections)).
		Strs("titles", idx.Titles()).
		Msg("Knowledge base loaded")

	return idx
}

// LoadFile reads the corpus from path. Read failures are logged and produce
// the Unavailable index so callers never need a nil check.
func LoadFile(path string) *Index {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", "knowledge").
			Str("path", path).
			Msg("Could not load knowledge corpus")
		return unavailable()
	}
	return Load(string(raw))
}

// Default returns the index built from the embedded corpus.
func Default() *Index {
	return Load(defaultCorpus)
}

func unavailable() *Index {
	return &Index{
		sections: []Section{{Title: UnavailableTitle, Body: Unavailable, Text: Unavailable}},
		byTitle:  map[string]int{UnavailableTitle: 0},
		full:     Unavailable,
	}
}

// Section returns the section with the given title. Lookup is case-insensitive.
func (i *Index) Section(title string) (Section, bool) {
	pos, ok := i.byTitle[strings.ToUpper(strings.TrimSpace(title))]
	if !ok {
		return Section{}, false
	}
	return i.sections[pos], true
}

// Titles returns section titles in corpus order.
func (i *Index) Titles() []string {
	titles := make([]string, len(i.sections))
	for n, s := range i.sections {
		titles[n] = s.Title
	}
	return titles
}

// Sections returns a copy of all sections in corpus order.
func (i *Index) Sections() []Section {
	out := make([]Section, len(i.sections))
	copy(out, i.sections)
	return out
}

// Full returns the whole corpus text.
func (i *Index) Full() string {
	return i.full
}

// Len returns the number of sections.
func (i *Index) Len() int {
	return len(i.sections)
}

// Available reports whether the index was built from a real corpus.
func (i *Index) Available() bool {
	return i.full != Unavailable
}

// position returns the corpus-order position of title, or -1.
func (i *Index) position(title string) int {
	if pos, ok := i.byTitle[title]; ok {
		return pos
	}
	return -1
}
