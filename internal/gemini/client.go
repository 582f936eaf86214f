// Package gemini queries the Gemini generative AI search API for stock
// summaries and parses the tagged-field responses into domain snapshots.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"stockpulse/internal/domain"
	"stockpulse/internal/news"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
)

// ErrMissingAPIKey is returned by NewClient when no API key is configured.
// It is surfaced before any call is attempted.
var ErrMissingAPIKey = errors.New("gemini: api key is missing")

// promptTemplate asks the model for a machine-parseable tag preamble followed
// by a free-form narrative. The %s is the target ticker symbol.
const promptTemplate = `Find the real-time stock price and latest market news for %s.

I need you to output a structured summary that I can parse programmatically, followed by a human-readable analysis.

STRICTLY follow this format for the first part of your response:
||SYMBOL: <ticker symbol>||
||NAME: <company name>||
||PRICE: <current numeric price, no currency symbol>||
||CURRENCY: <currency code like USD>||
||CHANGE: <percentage change today, numeric only>||
||MARKETCAP: <market cap string>||
||SENTIMENT: <bullish, bearish, or neutral>||

After these tags, provide a concise paragraph analyzing why the stock is moving today.`

// Searcher produces an analysis result for a ticker symbol.
type Searcher interface {
	SearchStock(ctx context.Context, symbol string) (*Result, error)
}

// Result is the full outcome of a single stock query: the parsed snapshot
// (nil when the response carried no structured data), deduplicated news from
// grounding references, and the raw model text.
type Result struct {
	Snapshot *domain.Snapshot
	News     []domain.NewsItem
	RawText  string
}

// Compile-time interface check.
var _ Searcher = (*Client)(nil)

// Client is a Gemini generateContent API client with web grounding enabled.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithModel overrides the model name.
func WithModel(m string) Option {
	return func(c *Client) { c.model = m }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestsPerMin throttles outbound calls. Zero disables throttling.
func WithRequestsPerMin(rpm int) Option {
	return func(c *Client) {
		if rpm > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
		}
	}
}

// NewClient creates a Gemini client. It fails immediately when the API key
// is empty so a bad credential never reaches the network.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Wire types (generateContent)
// ---------------------------------------------------------------------------

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content           content            `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata"`
}

type groundingMetadata struct {
	GroundingChunks []groundingChunk `json:"groundingChunks"`
}

type groundingChunk struct {
	Web *webSource `json:"web"`
}

type webSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

// SearchStock issues one grounded query for the symbol and returns the parsed
// result. A transport or service error returns a non-nil error; a successful
// call whose text carries no PRICE tag returns a Result with a nil Snapshot.
// There are no retries: each search attempt is terminal.
func (c *Client) SearchStock(ctx context.Context, symbol string) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: fmt.Sprintf(promptTemplate, symbol)}}}},
		// JSON schema mode cannot be combined with google_search, so the
		// tagged text is parsed manually.
		Tools: []tool{{GoogleSearch: &struct{}{}}},
	}

	resp, err := c.generate(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	text, refs := flattenResponse(resp)

	return &Result{
		Snapshot: ParseSnapshot(text, symbol),
		News:     news.Deduplicate(refs),
		RawText:  text,
	}, nil
}

// generate performs the HTTP call to the generateContent endpoint.
func (c *Client) generate(ctx context.Context, reqBody generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini api error (status %d): %s", res.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &genResp, nil
}

// flattenResponse joins the first candidate's text parts and collects its
// grounding references in relevance order.
func flattenResponse(resp *generateResponse) (string, []news.Reference) {
	if len(resp.Candidates) == 0 {
		return "", nil
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	var refs []news.Reference
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil {
				continue
			}
			refs = append(refs, news.Reference{
				URL:   chunk.Web.URI,
				Title: chunk.Web.Title,
			})
		}
	}

	return sb.String(), refs
}
