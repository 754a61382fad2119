package domain

import (
	"regexp"
	"strings"
)

// langPattern accepts BCP 47 style primary tags with an optional region or
// script subtag, e.g. "en", "pt-br", "zh-hant".
var langPattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})?$`)

// NormalizeLang trims and lower-cases a language tag and checks its shape.
func NormalizeLang(lang string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(lang))
	if !langPattern.MatchString(normalized) {
		return "", ErrInvalidLanguage
	}
	return normalized, nil
}

// NormalizeLangs normalizes every tag and drops duplicates, keeping the
// first-seen order.
func NormalizeLangs(langs []string) ([]string, error) {
	if langs == nil {
		return nil, nil
	}

	result := make([]string, 0, len(langs))
	seen := make(map[string]struct{}, len(langs))
	for _, l := range langs {
		normalized, err := NormalizeLang(l)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result, nil
}

// LanguageFilterKind enumerates the ways a listing can filter by language.
type LanguageFilterKind int

const (
	// LanguageFilterNone applies no language constraint.
	LanguageFilterNone LanguageFilterKind = iota
	// LanguageFilterByLanguage keeps tasks whose lang equals the filter's language.
	LanguageFilterByLanguage
	// LanguageFilterOnlyNoLang keeps tasks without a lang.
	LanguageFilterOnlyNoLang
)

// LanguageFilter is a listing constraint on task language. The zero value
// applies no constraint.
type LanguageFilter struct {
	kind LanguageFilterKind
	lang string
}

// NoLanguageFilter returns a filter that keeps every task.
func NoLanguageFilter() LanguageFilter {
	return LanguageFilter{kind: LanguageFilterNone}
}

// ByLanguage returns a filter that keeps tasks in the given (normalized) language.
func ByLanguage(lang string) LanguageFilter {
	return LanguageFilter{kind: LanguageFilterByLanguage, lang: lang}
}

// OnlyNoLang returns a filter that keeps tasks without a language.
func OnlyNoLang() LanguageFilter {
	return LanguageFilter{kind: LanguageFilterOnlyNoLang}
}

// NewLanguageFilter builds a filter from the two optional listing parameters.
// Supplying a language together with onlyNoLang is rejected.
func NewLanguageFilter(lang *string, onlyNoLang bool) (LanguageFilter, error) {
	if lang != nil && onlyNoLang {
		return LanguageFilter{}, ErrConflictingLanguageFilter
	}
	if onlyNoLang {
		return OnlyNoLang(), nil
	}
	if lang == nil {
		return NoLanguageFilter(), nil
	}

	normalized, err := NormalizeLang(*lang)
	if err != nil {
		return LanguageFilter{}, err
	}
	return ByLanguage(normalized), nil
}

// Kind returns the filter variant.
func (f LanguageFilter) Kind() LanguageFilterKind {
	return f.kind
}

// Lang returns the language of a ByLanguage filter and "" otherwise.
func (f LanguageFilter) Lang() string {
	if f.kind != LanguageFilterByLanguage {
		return ""
	}
	return f.lang
}

// Matches reports whether a task with the given lang passes the filter.
func (f LanguageFilter) Matches(taskLang *string) bool {
	switch f.kind {
	case LanguageFilterByLanguage:
		return taskLang != nil && *taskLang == f.lang
	case LanguageFilterOnlyNoLang:
		return taskLang == nil
	default:
		return true
	}
}

// LanguageCounts summarizes the active pool by language. Tasks without a
// language count toward TotalCount only.
type LanguageCounts struct {
	TotalCount  int64            `json:"total_count"`
	PerLanguage map[string]int64 `json:"per_language"`
}
