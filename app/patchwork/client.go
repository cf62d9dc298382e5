package patchwork

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/patchlore/patchlore/app/fetch"
)

// Client reads the upstream patch feed. All calls go through the resilient
// fetcher, so transient upstream failures are retried before surfacing.
type Client struct {
	fetcher *fetch.Client
	baseURL string
}

func NewClient(fetcher *fetch.Client, baseURL string) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
	}
}

// FetchPage fetches one page of the feed, newest first.
func (c *Client) FetchPage(ctx context.Context, page, perPage int) (*PatchList, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("order", "-date")

	slog.Debug("Fetching patch feed page", "page", page, "per_page", perPage)

	var list PatchList
	if err := c.fetcher.GetJSON(ctx, c.baseURL, params, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch feed page %d: %w", page, err)
	}

	slog.Info("Fetched patch feed page",
		"page", page,
		"results", len(list.Results),
		"total", list.Count)

	return &list, nil
}

// FetchPatch fetches a single patch by its external id.
func (c *Client) FetchPatch(ctx context.Context, id string) (*Patch, error) {
	patchURL, err := url.JoinPath(c.baseURL, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build patch URL: %w", err)
	}

	var patch Patch
	if err := c.fetcher.GetJSON(ctx, patchURL+"/", nil, &patch); err != nil {
		return nil, fmt.Errorf("failed to fetch patch %s: %w", id, err)
	}

	return &patch, nil
}
