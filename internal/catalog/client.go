package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Jikan API base (public, unofficial MyAnimeList API)
const jikanBase = "https://api.jikan.moe/v4"

// Client searches the external manga catalog to pre-fill series
// creation. Lookups are best-effort: a failed or timed-out call
// degrades to an empty result list and is never surfaced as an error
// to the collection itself.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Limit   int // max results per query
}

func NewClient() *Client {
	return &Client{
		BaseURL: jikanBase,
		HTTP:    &http.Client{Timeout: 12 * time.Second},
		Limit:   10,
	}
}

// Result is one candidate match from the catalog.
type Result struct {
	MalID         int64    `json:"mal_id"`
	Title         string   `json:"title"`
	TitleEnglish  string   `json:"title_english,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	CoverURLLarge string   `json:"cover_url_large,omitempty"`
	Volumes       *int     `json:"volumes,omitempty"`
	Publishing    bool     `json:"publishing"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Authors       []string `json:"authors"`
	Score         *float64 `json:"score,omitempty"`
}

type jikanResponse struct {
	Data []struct {
		MalID        int64  `json:"mal_id"`
		Title        string `json:"title"`
		TitleEnglish string `json:"title_english"`
		Images       struct {
			JPG struct {
				ImageURL      string `json:"image_url"`
				SmallImageURL string `json:"small_image_url"`
				LargeImageURL string `json:"large_image_url"`
			} `json:"jpg"`
		} `json:"images"`
		Volumes    *int     `json:"volumes"`
		Publishing bool     `json:"publishing"`
		Synopsis   string   `json:"synopsis"`
		Authors    []struct {
			MalID int64  `json:"mal_id"`
			Name  string `json:"name"`
		} `json:"authors"`
		Score *float64 `json:"score"`
	} `json:"data"`
}

// Search returns up to Limit candidate matches for the query. Queries
// shorter than 2 characters and any upstream failure both yield an
// empty slice.
func (c *Client) Search(ctx context.Context, query string) []Result {
	if len(query) < 2 {
		return []Result{}
	}

	results, err := c.search(ctx, query)
	if err != nil {
		log.Printf("[catalog] search %q: %v", query, err)
		return []Result{}
	}
	return results
}

func (c *Client) search(ctx context.Context, query string) ([]Result, error) {
	u, err := url.Parse(c.BaseURL + "/manga")
	if err != nil {
		return nil, fmt.Errorf("jikan: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("limit", fmt.Sprintf("%d", c.Limit))
	q.Set("sfw", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("jikan: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jikan: request: %w", err)
	}

	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jikan: status %d: %s", resp.StatusCode, string(body))
	}

	var jr jikanResponse
	if err := json.Unmarshal(body, &jr); err != nil {
		return nil, fmt.Errorf("jikan: decode: %w", err)
	}

	out := make([]Result, 0, len(jr.Data))
	for _, item := range jr.Data {
		if item.MalID == 0 || item.Title == "" {
			continue
		}
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		out = append(out, Result{
			MalID:         item.MalID,
			Title:         item.Title,
			TitleEnglish:  item.TitleEnglish,
			CoverURL:      item.Images.JPG.ImageURL,
			CoverURLLarge: item.Images.JPG.LargeImageURL,
			Volumes:       item.Volumes,
			Publishing:    item.Publishing,
			Synopsis:      item.Synopsis,
			Authors:       authors,
			Score:         item.Score,
		})
		if len(out) >= c.Limit {
			break
		}
	}
	return out, nil
}
