package lore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/patchlore/patchlore/app/fetch"
)

const threadPageTemplate = `<!DOCTYPE html>
<html><body>
<a href="/rust-for-linux/root@kernel.org/">[PATCH] rust: add abstraction</a>
<a href="/rust-for-linux/root@kernel.org/#t">permalink</a>
<a href="/rust-for-linux/reply-1@example.com/">Re: [PATCH] rust: add abstraction</a>
<a href="/rust-for-linux/reply-2@example.com/">Re: [PATCH] rust: add abstraction</a>
<a href="/rust-for-linux/root@kernel.org/">duplicate link</a>
<a href="/other-list/stray@example.com/">wrong list</a>
<a href="/rust-for-linux/">list index</a>
<a href="https://example.com/external">external</a>
</body></html>`

func TestExtractThreadLinks(t *testing.T) {
	ids, err := ExtractThreadLinks([]byte(threadPageTemplate), "rust-for-linux")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"root@kernel.org", "reply-1@example.com", "reply-2@example.com"}
	if len(ids) != len(expected) {
		t.Fatalf("Expected %d ids, got %d: %v", len(expected), len(ids), ids)
	}
	for i, want := range expected {
		if ids[i] != want {
			t.Errorf("Expected id %d to be '%s', got '%s'", i, want, ids[i])
		}
	}
}

func TestExtractThreadLinksEmptyPage(t *testing.T) {
	ids, err := ExtractThreadLinks([]byte("<html><body>nothing here</body></html>"), "rust-for-linux")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Expected no ids, got %v", ids)
	}
}

func rawMessage(messageID, inReplyTo, root string) string {
	lines := []string{
		"From: Someone <someone@example.com>",
		"Subject: [PATCH] rust: add abstraction",
		"Date: Mon, 01 Jan 2024 10:00:00 +0000",
		fmt.Sprintf("Message-ID: <%s>", messageID),
	}
	if inReplyTo != "" {
		lines = append(lines,
			fmt.Sprintf("In-Reply-To: <%s>", inReplyTo),
			fmt.Sprintf("References: <%s>", root))
	}
	lines = append(lines, "", "body text")
	return strings.Join(lines, "\r\n")
}

func newTestClient(serverURL string) *Client {
	policy := fetch.Policy{MaxRetries: 1, InitialBackoff: 0, Multiplier: 1, RateLimitCooldown: 0}
	fetcher := fetch.NewClient(&http.Client{}, "patchlore-test", policy)
	return NewClient(fetcher, serverURL, "rust-for-linux")
}

func TestDiscoverThread(t *testing.T) {
	messages := map[string]string{
		"root@kernel.org":     rawMessage("root@kernel.org", "", ""),
		"reply-1@example.com": rawMessage("reply-1@example.com", "root@kernel.org", "root@kernel.org"),
		"reply-2@example.com": rawMessage("reply-2@example.com", "reply-1@example.com", "root@kernel.org"),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 2 && parts[0] == "rust-for-linux" {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, threadPageTemplate)
			return
		}
		if len(parts) == 3 && parts[2] == "raw" {
			if raw, ok := messages[parts[1]]; ok {
				fmt.Fprint(w, raw)
				return
			}
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	emails, err := client.DiscoverThread(context.Background(), "root@kernel.org")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(emails) != 3 {
		t.Fatalf("Expected 3 emails, got %d", len(emails))
	}

	for _, email := range emails {
		if got := ThreadID(email); got != "root@kernel.org" {
			t.Errorf("Expected all messages to share thread root, got '%s' for '%s'", got, email.MessageID)
		}
	}
}

func TestDiscoverThreadDropsBrokenMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 2 {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, threadPageTemplate)
			return
		}
		if len(parts) == 3 && parts[2] == "raw" {
			if parts[1] == "reply-1@example.com" {
				// This message is gone from the archive
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, rawMessage(parts[1], "", ""))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	emails, err := client.DiscoverThread(context.Background(), "root@kernel.org")
	if err != nil {
		t.Fatalf("Expected partial thread without error, got: %v", err)
	}

	if len(emails) != 2 {
		t.Fatalf("Expected 2 emails after dropping the broken one, got %d", len(emails))
	}
	for _, email := range emails {
		if email.MessageID == "reply-1@example.com" {
			t.Error("Expected the unfetchable message to be dropped")
		}
	}
}

func TestDiscoverThreadPageFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.DiscoverThread(context.Background(), "root@kernel.org"); err == nil {
		t.Error("Expected an error when the thread page cannot be fetched")
	}
}
