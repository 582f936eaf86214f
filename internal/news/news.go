// Package news turns the grounding references cited by the AI service into
// deduplicated news items and archives them by date.
package news

import (
	"net/url"
	"strings"

	"stockpulse/internal/domain"
)

// MaxItems caps the number of news items produced per result set.
const MaxItems = 5

// Reference is a raw web source cited by the AI service in support of its
// answer. Title may be empty; references without a URL are discarded.
type Reference struct {
	URL   string
	Title string
}

// Deduplicate filters references down to at most MaxItems news items with
// unique URLs, preserving first-seen order. The source label is derived from
// the URL host with a leading "www." stripped.
func Deduplicate(refs []Reference) []domain.NewsItem {
	var items []domain.NewsItem
	seen := make(map[string]bool, len(refs))

	for _, ref := range refs {
		if ref.URL == "" {
			continue
		}
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true

		items = append(items, domain.NewsItem{
			Title:  ref.Title,
			URL:    ref.URL,
			Source: sourceLabel(ref.URL),
		})
		if len(items) == MaxItems {
			break
		}
	}
	return items
}

// sourceLabel extracts a human-readable source from a URL. An unparseable
// URL yields an empty label rather than dropping the item.
func sourceLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
