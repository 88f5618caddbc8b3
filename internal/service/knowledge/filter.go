package knowledge

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// DefaultLongQueryThreshold is the query length, in characters, above which
// an unmatched query receives the whole corpus.
const DefaultLongQueryThreshold = 50

// Tier names the rule that produced a Selection.
type Tier string

const (
	TierMatched   Tier = "crop_specific"
	TierLongQuery Tier = "full_kb_high_intent"
	TierSlim      Tier = "risk_only"
	TierFallback  Tier = "full_kb_fallback"
)

// Selection is the context chosen for one query.
type Selection struct {
	Tier   Tier
	Titles []string
	Text   string
}

// Filter selects the minimal relevant slice of an Index for a query.
type Filter struct {
	index     *Index
	keywords  *KeywordTable
	threshold int
}

// NewFilter creates a filter. A non-positive threshold uses
// DefaultLongQueryThreshold.
func NewFilter(index *Index, keywords *KeywordTable, threshold int) *Filter {
	if threshold <= 0 {
		threshold = DefaultLongQueryThreshold
	}
	return &Filter{index: index, keywords: keywords, threshold: threshold}
}

// Select picks context for query. The returned text is never empty.
//
// Tiers, in order: every section with a matching keyword; the full corpus for
// long queries; the slim bundle; the full corpus when the slim sections are
// missing from the index.
func (f *Filter) Select(query string) Selection {
	if sel, ok := f.matched(query); ok {
		return f.logged(query, sel)
	}

	if utf8.RuneCountInString(query) > f.threshold {
		return f.logged(query, Selection{Tier: TierLongQuery, Text: f.index.Full()})
	}

	if sel, ok := f.slim(); ok {
		return f.logged(query, sel)
	}

	return f.logged(query, Selection{Tier: TierFallback, Text: f.index.Full()})
}

func (f *Filter) matched(query string) (Selection, bool) {
	var found []Section
	for _, title := range f.keywords.Match(query) {
		if s, ok := f.index.Section(title); ok {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return Selection{}, false
	}

	sort.SliceStable(found, func(a, b int) bool {
		return f.index.position(found[a].Title) < f.index.position(found[b].Title)
	})
	return join(TierMatched, found), true
}

func (f *Filter) slim() (Selection, bool) {
	var found []Section
	for _, title := range f.keywords.Slim() {
		if s, ok := f.index.Section(title); ok {
			found = append(found, s)
		}
	}
	if len(found) == 0 {
		return Selection{}, false
	}
	return join(TierSlim, found), true
}

func join(tier Tier, sections []Section) Selection {
	sel := Selection{Tier: tier, Titles: make([]string, len(sections))}
	texts := make([]string, len(sections))
	for i, s := range sections {
		sel.Titles[i] = s.Title
		texts[i] = s.Text
	}
	sel.Text = strings.Join(texts, "\n\n")
	return sel
}

func (f *Filter) logged(query string, sel Selection) Selection {
	log.Debug().
		Str("component", "knowledge").
		Str("tier", string(sel.Tier)).
		Int("queryChars", utf8.RuneCountInString(query)).
		Strs("sections", sel.Titles).
		Int("contextChars", len(sel.Text)).
		Msg("Context selected")
	return sel
}
