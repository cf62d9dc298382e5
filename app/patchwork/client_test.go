package patchwork

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/patchlore/patchlore/app/fetch"
)

func newTestFetcher() *fetch.Client {
	return fetch.NewClient(&http.Client{Timeout: 5 * time.Second}, "Patchlore Test/1.0", fetch.Policy{
		MaxRetries:        2,
		InitialBackoff:    time.Millisecond,
		Multiplier:        2.0,
		RateLimitCooldown: time.Millisecond,
	})
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" {
			t.Errorf("Expected page '2', got '%s'", q.Get("page"))
		}
		if q.Get("per_page") != "1" {
			t.Errorf("Expected per_page '1', got '%s'", q.Get("per_page"))
		}
		if q.Get("order") != "-date" {
			t.Errorf("Expected order '-date', got '%s'", q.Get("order"))
		}

		w.Write([]byte(`{
			"count": 3,
			"next": "https://feed.example.com/?page=3",
			"results": [
				{
					"id": 42,
					"name": "[PATCH] test",
					"date": "2024-01-01T00:00:00Z",
					"submitter": {"id": 7, "name": "A", "email": "a@x"},
					"msgid": "<m@x>"
				}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(newTestFetcher(), server.URL)

	list, err := client.FetchPage(context.Background(), 2, 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if list.Count != 3 {
		t.Errorf("Expected count 3, got %d", list.Count)
	}
	if list.Next == nil {
		t.Error("Expected next page URL")
	}
	if len(list.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(list.Results))
	}
	if list.Results[0].ID != 42 {
		t.Errorf("Expected patch id 42, got %d", list.Results[0].ID)
	}
	if list.Results[0].Submitter == nil || list.Results[0].Submitter.ID != 7 {
		t.Errorf("Expected submitter id 7, got %+v", list.Results[0].Submitter)
	}
}

func TestFetchPageLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count": 1, "next": null, "results": [{"id": 1}]}`))
	}))
	defer server.Close()

	client := NewClient(newTestFetcher(), server.URL)

	list, err := client.FetchPage(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if list.Next != nil {
		t.Errorf("Expected nil next on last page, got %v", *list.Next)
	}
}

func TestFetchPatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/42/" {
			t.Errorf("Expected path '/42/', got '%s'", r.URL.Path)
		}
		w.Write([]byte(`{"id": 42, "name": "[PATCH] test", "content": "diff --git"}`))
	}))
	defer server.Close()

	client := NewClient(newTestFetcher(), server.URL)

	patch, err := client.FetchPatch(context.Background(), "42")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if patch.ID != 42 {
		t.Errorf("Expected id 42, got %d", patch.ID)
	}
	if patch.Content != "diff --git" {
		t.Errorf("Unexpected content: %s", patch.Content)
	}
}
