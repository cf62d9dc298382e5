package lore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/patchlore/patchlore/app/fetch"
)

// Client crawls the mailing list archive. The archive has no API; messages
// are fetched raw by message id and threads discovered by scraping the
// thread listing page.
type Client struct {
	fetcher *fetch.Client
	baseURL string
	list    string
}

func NewClient(fetcher *fetch.Client, baseURL, list string) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: baseURL,
		list:    list,
	}
}

func (c *Client) messageURL(messageID, suffix string) (string, error) {
	u, err := url.JoinPath(c.baseURL, c.list, messageID, suffix)
	if err != nil {
		return "", fmt.Errorf("failed to build archive URL: %w", err)
	}
	return u, nil
}

// FetchRawMessage fetches the full RFC-5322 body of one message.
func (c *Client) FetchRawMessage(ctx context.Context, messageID string) ([]byte, error) {
	u, err := c.messageURL(messageID, "raw")
	if err != nil {
		return nil, err
	}
	return c.fetcher.Get(ctx, u, nil)
}

// FetchThreadPage fetches the HTML thread listing for a message.
func (c *Client) FetchThreadPage(ctx context.Context, messageID string) ([]byte, error) {
	u, err := c.messageURL(messageID, "")
	if err != nil {
		return nil, err
	}
	return c.fetcher.Get(ctx, u, nil)
}

// DiscoverThread returns every parseable message in the thread rooted at
// rootMessageID. Single-message failures are logged and dropped so one bad
// message never loses the rest of the thread. Message order is discovery
// order, not chronological.
func (c *Client) DiscoverThread(ctx context.Context, rootMessageID string) ([]*Email, error) {
	page, err := c.FetchThreadPage(ctx, rootMessageID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread page for %s: %w", rootMessageID, err)
	}

	ids, err := ExtractThreadLinks(page, c.list)
	if err != nil {
		return nil, err
	}

	slog.Debug("Discovered thread links", "root", rootMessageID, "count", len(ids))

	var emails []*Email
	for _, id := range ids {
		if ctx.Err() != nil {
			return emails, ctx.Err()
		}

		raw, err := c.FetchRawMessage(ctx, id)
		if err != nil {
			slog.Warn("Failed to fetch thread message, dropping", "message_id", id, "error", err)
			continue
		}

		email, err := ParseEmail(raw)
		if err != nil {
			slog.Warn("Failed to parse thread message, dropping", "message_id", id, "error", err)
			continue
		}

		emails = append(emails, email)
	}

	return emails, nil
}
