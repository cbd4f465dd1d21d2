package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/config"
	"video-insights-go/internal/types"
)

const (
	DefaultRegion   = "US"
	DefaultLanguage = "en"
)

// Result is one video hit.
type Result struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	ViewCount    string `json:"view_count"`
	DurationText string `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Reference is the canonical watch URL for the hit.
func (r Result) Reference() string {
	return "https://youtube.com/watch?v=" + r.ID
}

// Item converts the hit into a selectable item.
func (r Result) Item() types.SelectedItem {
	return types.SelectedItem{Reference: r.Reference(), Title: r.Title}
}

// SearchError is a non-2xx answer from the search provider.
type SearchError struct {
	StatusCode int
	Body       string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search returned %d: %s", e.StatusCode, e.Body)
}

type rawItem struct {
	Type         string          `json:"type"`
	VideoID      string          `json:"videoId"`
	Title        string          `json:"title"`
	ChannelTitle string          `json:"channelTitle"`
	ViewCount    json.RawMessage `json:"viewCount"`
	LengthText   string          `json:"lengthText"`
	Description  string          `json:"description"`
	Thumbnail    []struct {
		URL string `json:"url"`
	} `json:"thumbnail"`
}

type rawResponse struct {
	Data []rawItem `json:"data"`
}

type Client struct {
	baseURL    string
	apiKey     string
	apiHost    string
	httpClient *http.Client
	log        *logrus.Entry
}

func NewClient(cfg config.RapidAPI, log *logrus.Entry) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.SearchBaseURL, "/"),
		apiKey:     cfg.Key,
		apiHost:    cfg.SearchHost,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// Search runs one query and returns the video hits in provider order.
// Empty region and language fall back to US / en.
func (c *Client) Search(ctx context.Context, query, region, language string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if region == "" {
		region = DefaultRegion
	}
	if language == "" {
		language = DefaultLanguage
	}

	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("geo", strings.ToUpper(region))
	q.Set("lang", strings.ToLower(language))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).Error("search API request failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SearchError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed rawResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.log.WithError(err).Error("failed to parse search API JSON")
		return nil, fmt.Errorf("json decode error: %w", err)
	}

	out := make([]Result, 0, len(parsed.Data))
	for _, it := range parsed.Data {
		if it.Type != "video" || it.VideoID == "" {
			continue
		}
		r := Result{
			ID:           it.VideoID,
			Title:        it.Title,
			Channel:      it.ChannelTitle,
			ViewCount:    scalar(it.ViewCount),
			DurationText: it.LengthText,
			Description:  it.Description,
		}
		if len(it.Thumbnail) > 0 {
			r.ThumbnailURL = it.Thumbnail[0].URL
		}
		out = append(out, r)
	}

	c.log.WithFields(logrus.Fields{"query": query, "results": len(out)}).Info("search complete")
	return out, nil
}

// scalar renders a string or number field as text.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
