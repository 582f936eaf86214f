package gemini

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"stockpulse/internal/domain"
)

// tagRe matches every ||KEY: value|| block, used to strip the preamble out of
// the narrative summary.
var tagRe = regexp.MustCompile(`\|\|.*?:.*?\|\|`)

// blankRunRe collapses runs of blank lines left behind after tag removal.
var blankRunRe = regexp.MustCompile(`\n\s*\n`)

// keyRes holds one compiled extractor per tag key. The value is non-greedy:
// it ends at the first following delimiter, so a value containing the
// delimiter sequence is truncated there.
var keyRes = map[string]*regexp.Regexp{}

func init() {
	for _, key := range []string{"SYMBOL", "NAME", "PRICE", "CURRENCY", "CHANGE", "MARKETCAP", "SENTIMENT"} {
		keyRes[key] = regexp.MustCompile(`\|\|` + key + `:\s*(.*?)\|\|`)
	}
}

// extractTag returns the trimmed value of the first ||key: value|| match, or
// "" when the tag is absent.
func extractTag(text, key string) string {
	m := keyRes[key].FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ParseSnapshot extracts a structured Snapshot from raw model text. Absent
// tags fall back to field defaults, except PRICE: when no parseable PRICE tag
// is present the whole parse fails and nil is returned, signaling that the
// query yielded no usable structured answer.
func ParseSnapshot(text, originalSymbol string) *domain.Snapshot {
	priceStr := extractTag(text, "PRICE")
	if priceStr == "" {
		return nil
	}
	price, err := strconv.ParseFloat(strings.ReplaceAll(priceStr, ",", ""), 64)
	if err != nil {
		return nil
	}

	symbol := extractTag(text, "SYMBOL")
	if symbol == "" {
		symbol = strings.ToUpper(originalSymbol)
	}
	name := extractTag(text, "NAME")
	if name == "" {
		name = symbol
	}
	currency := extractTag(text, "CURRENCY")
	if currency == "" {
		currency = "USD"
	}
	marketCap := extractTag(text, "MARKETCAP")
	if marketCap == "" {
		marketCap = "N/A"
	}

	changePercent := 0.0
	if changeStr := strings.TrimSuffix(extractTag(text, "CHANGE"), "%"); changeStr != "" {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(changeStr, ",", ""), 64); err == nil {
			changePercent = v
		}
	}

	return &domain.Snapshot{
		Symbol:        symbol,
		CompanyName:   name,
		Price:         price,
		Currency:      currency,
		ChangePercent: changePercent,
		MarketCap:     marketCap,
		Sentiment:     classifySentiment(extractTag(text, "SENTIMENT")),
		Summary:       extractSummary(text),
		LastUpdated:   time.Now(),
	}
}

// classifySentiment maps free-form sentiment text onto the enum. The match is
// a lossy, case-insensitive substring check so arbitrary model phrasing like
// "bullish-leaning" still classifies. "bear" is checked after "bull", so a
// value containing both classifies bearish.
func classifySentiment(raw string) domain.Sentiment {
	lower := strings.ToLower(raw)
	sentiment := domain.SentimentNeutral
	if strings.Contains(lower, "bull") {
		sentiment = domain.SentimentBullish
	}
	if strings.Contains(lower, "bear") {
		sentiment = domain.SentimentBearish
	}
	return sentiment
}

// extractSummary removes every tag block from the text and normalises the
// remaining narrative.
func extractSummary(text string) string {
	summary := strings.TrimSpace(tagRe.ReplaceAllString(text, ""))
	return strings.TrimSpace(blankRunRe.ReplaceAllString(summary, "\n"))
}
