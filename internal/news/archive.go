package news

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"stockpulse/internal/domain"
)

// ArticleRecord is the Parquet schema for archived news items.
type ArticleRecord struct {
	Symbol string `parquet:"symbol"`
	Source string `parquet:"source"`
	Time   int64  `parquet:"time,timestamp(millisecond)"` // Unix ms
	Title  string `parquet:"title"`
	URL    string `parquet:"url"`
}

// Archive persists news items to daily Parquet files. Each date produces a
// single file at <DataDir>/news/<YYYY-MM-DD>.parquet holding items for every
// symbol searched that day.
type Archive struct {
	DataDir string
}

// NewArchive creates an Archive rooted at the given data directory.
func NewArchive(dataDir string) *Archive {
	return &Archive{DataDir: dataDir}
}

// Append merges items for a symbol into the day file for now's date. Records
// are deduplicated by (symbol, url), preferring the incoming record.
func (a *Archive) Append(symbol string, items []domain.NewsItem, now time.Time) error {
	if len(items) == 0 {
		return nil
	}

	incoming := make([]ArticleRecord, 0, len(items))
	for _, item := range items {
		incoming = append(incoming, ArticleRecord{
			Symbol: symbol,
			Source: item.Source,
			Time:   now.UnixMilli(),
			Title:  item.Title,
			URL:    item.URL,
		})
	}

	date := now.Format("2006-01-02")
	path := a.dayPath(date)

	existing, _ := readParquetFile[ArticleRecord](path)
	merged := mergeArticleRecords(existing, incoming)

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing news archive for %s: %w", date, err)
	}
	return nil
}

// ReadDay returns the archived items for a symbol on a date (YYYY-MM-DD).
// A missing day file yields an empty slice, not an error.
func (a *Archive) ReadDay(symbol, date string) ([]domain.NewsItem, error) {
	records, err := readParquetFile[ArticleRecord](a.dayPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var items []domain.NewsItem
	for i := range records {
		if records[i].Symbol != symbol {
			continue
		}
		items = append(items, domain.NewsItem{
			Title:  records[i].Title,
			URL:    records[i].URL,
			Source: records[i].Source,
		})
	}
	return items, nil
}

// dayPath returns the archive file path for a date.
// Layout: <dataDir>/news/<YYYY-MM-DD>.parquet
func (a *Archive) dayPath(date string) string {
	return filepath.Join(a.DataDir, "news", date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeArticleRecords deduplicates records by (symbol, url), preferring new
// records over existing ones. Results are sorted by time, then URL for a
// stable order within one append batch.
func mergeArticleRecords(existing, incoming []ArticleRecord) []ArticleRecord {
	type key struct {
		symbol string
		url    string
	}
	seen := make(map[key]ArticleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.URL}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.URL}] = r
	}

	merged := make([]ArticleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Time != merged[j].Time {
			return merged[i].Time < merged[j].Time
		}
		return merged[i].URL < merged[j].URL
	})
	return merged
}
