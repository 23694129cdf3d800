package redditclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"foodtrend/internal/model"
)

func newTestClient(ts *httptest.Server) *HTTPClient {
	c := NewHTTPClient("", "", "foodtrend-test/1.0")
	c.httpClient = ts.Client()
	c.publicURL = ts.URL
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

type listingChild struct {
	Data map[string]any `json:"data"`
}

func writeListing(w http.ResponseWriter, after string, children ...listingChild) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"after": after, "children": children},
	})
}

func child(id string, score int, created int64) listingChild {
	return listingChild{Data: map[string]any{
		"id": id, "subreddit": "food", "title": "kimchi bowl", "selftext": "so good",
		"author": "u1", "score": score, "upvote_ratio": 0.94, "num_comments": 7,
		"created_utc": float64(created),
	}}
}

func TestFetchSubredditPaginates(t *testing.T) {
	pages := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		if r.URL.Query().Get("after") == "" {
			writeListing(w, "t3_b", child("a", 10, 1700000000))
			return
		}
		writeListing(w, "", child("b", 20, 1700003600))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.FetchSubreddit(context.Background(), "food", 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if pages != 2 {
		t.Fatalf("pages = %d, want 2", pages)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("posts = %+v", got)
	}
	if got[0].Score != 10 || got[0].CommentCount != 7 || got[0].UpvoteRatio != 0.94 {
		t.Fatalf("field mapping wrong: %+v", got[0])
	}
	if !got[0].CreatedAt.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Fatalf("created at = %v", got[0].CreatedAt)
	}
}

func TestFetchSubredditRetriesOn429(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeListing(w, "", child("a", 10, 1700000000))
	}))
	defer ts.Close()

	c := newTestClient(ts)
	got, err := c.FetchSubreddit(context.Background(), "food", 5)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", attempts)
	}
	if len(got) != 1 {
		t.Fatalf("posts = %+v", got)
	}
}

func TestFetchSubredditUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	c := newTestClient(ts)
	if _, err := c.FetchSubreddit(context.Background(), "food", 5); err == nil {
		t.Fatal("expected error on 403")
	} else if !errors.Is(err, model.ErrUpstreamUnavailable) {
		t.Fatalf("error %v not classified as upstream unavailable", err)
	}
}

func TestExtractorMentions(t *testing.T) {
	e := NewExtractor([]string{"kimchi", "pad thai", "pho", "Ice Cream"})
	cases := []struct {
		text string
		want []string
	}{
		{"Kimchi fried rice, then ice cream!", []string{"ice cream", "kimchi"}},
		{"my phone died at the pad thai place", []string{"pad thai"}},
		{"photos of nothing edible", nil},
		{"pho. (amazing)", []string{"pho"}},
	}
	for i, tc := range cases {
		if got := e.Mentions(tc.text); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("case %d: got %v, want %v", i, got, tc.want)
		}
	}
}

func TestAnnotateDropsPostsWithoutMentions(t *testing.T) {
	e := NewExtractor([]string{"kimchi"})
	posts := []model.Post{
		{ID: "a", Title: "kimchi jjigae"},
		{ID: "b", Title: "my weekend hike"},
	}
	got := e.Annotate(posts)
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("got %+v, want only post a", got)
	}
	if fmt.Sprint(got[0].FoodMentions) != "[kimchi]" {
		t.Fatalf("mentions = %v", got[0].FoodMentions)
	}
}
