// Package apify reads scraped community posts out of Apify dataset runs.
package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"safestay/internal/adapters/httpc"
	"safestay/internal/domain"
)

const (
	DefaultURL = "https://api.apify.com"
	pageSize   = 500
)

type Client struct {
	base  string
	token string
	h     *httpc.Client
}

func New(base, token string, rps int) *Client {
	if base == "" {
		base = DefaultURL
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		h:     httpc.New("apify", rps, 30*time.Second, nil),
	}
}

// item covers the fields the reddit scraper actors emit. Everything else is
// preserved verbatim in RawJSON.
type item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Text      string `json:"text"`
	Username  string `json:"username"`
	URL       string `json:"url"`
	CreatedAt string `json:"createdAt"`
}

// FetchPosts pages through a dataset's items.
func (c *Client) FetchPosts(ctx context.Context, datasetID string, limit int) ([]domain.RawPost, error) {
	if limit <= 0 {
		limit = 2000
	}

	var out []domain.RawPost
	for offset := 0; offset < limit; offset += pageSize {
		n := pageSize
		if rem := limit - offset; rem < n {
			n = rem
		}

		q := url.Values{}
		q.Set("token", c.token)
		q.Set("limit", strconv.Itoa(n))
		q.Set("offset", strconv.Itoa(offset))
		u := fmt.Sprintf("%s/v2/datasets/%s/items?%s", c.base, datasetID, q.Encode())

		var raws []json.RawMessage
		if err := c.h.GetJSON(ctx, u, &raws); err != nil {
			return nil, fmt.Errorf("apify dataset %s offset=%d: %w", datasetID, offset, err)
		}
		if len(raws) == 0 {
			break
		}

		for _, raw := range raws {
			post, ok := parseItem(raw)
			if !ok {
				continue
			}
			out = append(out, post)
		}
		if len(raws) < n {
			break
		}
	}
	return out, nil
}

func parseItem(raw json.RawMessage) (domain.RawPost, bool) {
	var it item
	if err := json.Unmarshal(raw, &it); err != nil || it.ID == "" {
		return domain.RawPost{}, false
	}

	body := it.Body
	if body == "" {
		body = it.Text
	}
	post := domain.RawPost{
		ID:        it.ID,
		Title:     it.Title,
		Body:      body,
		Author:    it.Username,
		Permalink: it.URL,
		RawJSON:   append([]byte(nil), raw...),
	}
	if it.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, it.CreatedAt); err == nil {
			utc := t.UTC()
			post.CreatedAt = &utc
		}
	}
	return post, true
}
