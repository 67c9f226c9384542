// Package ratefeed fetches daily reference exchange rates published by the
// Central Bank of Russia. Rates fetched here are provenance data for the
// console; deal math always uses the manually entered deal rates.
package ratefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultFeedURL serves the CBR daily bulletin as JSON.
const DefaultFeedURL = "https://www.cbr-xml-daily.ru/daily_json.js"

// Quote is one currency's reference rate in RUB per unit.
type Quote struct {
	Currency string
	Rate     float64
	Date     time.Time
}

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultFeedURL
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// bulletin mirrors the subset of the feed document we read. Valute rates are
// quoted per Nominal units of the foreign currency.
type bulletin struct {
	Date   time.Time `json:"Date"`
	Valute map[string]struct {
		Nominal int     `json:"Nominal"`
		Value   float64 `json:"Value"`
	} `json:"Valute"`
}

// Fetch returns the current USD and CNY reference rates. CNY is published per
// lot; the per-unit rate is Value divided by Nominal.
func (c *Client) Fetch(ctx context.Context) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rate feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var doc bulletin
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode rate feed: %w", err)
	}

	quotes := make([]Quote, 0, 2)
	for _, code := range []string{"USD", "CNY"} {
		v, ok := doc.Valute[code]
		if !ok || v.Nominal <= 0 {
			continue
		}
		quotes = append(quotes, Quote{
			Currency: code,
			Rate:     v.Value / float64(v.Nominal),
			Date:     doc.Date,
		})
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("rate feed carried no usable quotes")
	}

	return quotes, nil
}
