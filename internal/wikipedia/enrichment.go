package wikipedia

import (
	"strings"

	"github.com/antonholmquist/jason"
)

const wikidataBaseURL = "https://www.wikidata.org/wiki/"

// Enrichment is the encyclopedia data found for a name. A nil EnglishName
// means no entry matched. OtherSources is never nil.
type Enrichment struct {
	EnglishName  *string  `json:"english_name"`
	Description  *string  `json:"description"`
	OtherSources []string `json:"other_sources"`
	MainImage    *string  `json:"main_image"`
}

// Empty returns an Enrichment with no data.
func Empty() Enrichment {
	return Enrichment{OtherSources: []string{}}
}

// Found reports whether the lookup matched an encyclopedia entry.
func (e *Enrichment) Found() bool {
	return e != nil && e.EnglishName != nil
}

// summaryEntry reports whether a page summary describes a usable entry.
// Disambiguation pages and summaries without a title do not.
func summaryEntry(obj *jason.Object) bool {
	if kind, err := obj.GetString("type"); err == nil && kind == "disambiguation" {
		return false
	}
	title, err := obj.GetString("title")
	return err == nil && strings.TrimSpace(title) != ""
}

// enrichmentFromSummary maps a REST page summary onto an Enrichment.
// Sources are ordered: the article page first, then its Wikidata item.
func enrichmentFromSummary(obj *jason.Object) Enrichment {
	e := Empty()

	e.EnglishName = optionalString(obj, "title")
	e.Description = optionalString(obj, "extract")
	e.MainImage = optionalString(obj, "originalimage", "source")

	if page := optionalString(obj, "content_urls", "desktop", "page"); page != nil {
		e.OtherSources = append(e.OtherSources, *page)
	}
	if item := optionalString(obj, "wikibase_item"); item != nil {
		e.OtherSources = append(e.OtherSources, wikidataBaseURL+*item)
	}

	return e
}

// optionalString returns nil for missing, non-string or blank values
func optionalString(obj *jason.Object, keys ...string) *string {
	s, err := obj.GetString(keys...)
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
