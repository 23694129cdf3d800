package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"foodtrend/internal/model"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(32, 0)
	ctx := context.Background()
	a, err := e.Encode(ctx, []string{"kimchi fried rice", "kimchi fried rice"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a[0], a[1]) {
		t.Fatal("identical text must encode identically")
	}
	b, _ := e.Encode(ctx, []string{"kimchi fried rice"})
	if !reflect.DeepEqual(a[0], b[0]) {
		t.Fatal("encoding must not depend on batch composition")
	}
}

func TestHashingEmbedderEmptyTextZeroVector(t *testing.T) {
	e := NewHashingEmbedder(16, 0)
	vecs, err := e.Encode(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("slot %d = %v, want 0", i, v)
		}
	}
	if len(vecs[0]) != 16 {
		t.Fatalf("dimension = %d", len(vecs[0]))
	}
}

func TestHashingEmbedderTruncatesHead(t *testing.T) {
	e := NewHashingEmbedder(16, 10)
	long := "avocado " + "padding padding padding"
	short := "avocado pa"
	a, _ := e.Encode(context.Background(), []string{long})
	b, _ := e.Encode(context.Background(), []string{short})
	if !reflect.DeepEqual(a[0], b[0]) {
		t.Fatal("truncation must keep only the head of the text")
	}
}

func TestHTTPEmbedderRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req encodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		vecs := make([][]float64, len(req.Texts))
		for i := range vecs {
			vecs[i] = []float64{1, 2, 3}
		}
		_ = json.NewEncoder(w).Encode(encodeResponse{Vectors: vecs})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "test-encoder", 3, 0)
	vecs, err := e.Encode(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || len(vecs[0]) != 3 {
		t.Fatalf("vectors = %v", vecs)
	}
}

func TestHTTPEmbedderRejectsWrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(encodeResponse{Vectors: [][]float64{{1, 2}}})
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(srv.URL, "", 3, 0)
	if _, err := e.Encode(context.Background(), []string{"a"}); !errors.Is(err, model.ErrShapeMismatch) {
		t.Fatalf("error = %v, want ShapeMismatch", err)
	}
}

func TestEncodeGroupsPreservesOrder(t *testing.T) {
	e := NewHashingEmbedder(8, 0)
	texts := []string{"pho", "ramen", "sushi", "tacos", "poke", "bagel", "kale"}
	sequential, err := e.Encode(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	batched, err := EncodeGroups(context.Background(), e, texts, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sequential, batched) {
		t.Fatal("batched encoding must match sequential order")
	}
}
