package server

// Notes:
// - Router tests use httptest.NewRecorder; only the SSE test needs a real
//   listener because it reads a streaming response.

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, opts Options) (*Store, *Broker, http.Handler) {
	t.Helper()
	b := NewBroker()
	t.Cleanup(b.Close)
	s := NewStore(b)
	return s, b, New(s, b, opts)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// ---------------------------------------------------------------------------
// TestBroker
// ---------------------------------------------------------------------------

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	defer b.Close()

	if b.ClientCount() != 0 {
		t.Fatal("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatal("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatal("expected 0 clients after unsubscribe")
	}
}

func TestBroker_Publish(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventDeckUpdated, Data: map[string]string{"slug": "intro"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: deck.updated\n") || !strings.Contains(s, `"slug":"intro"`) {
			t.Errorf("message = %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestBroker_CloseClosesClients(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	ch := b.Subscribe()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel still open after Close")
	}
	// Safe after close.
	b.Publish(Event{Type: "x"})
	b.Close()
	if b.ClientCount() != 0 {
		t.Error("ClientCount after Close")
	}
}

// ---------------------------------------------------------------------------
// TestStore
// ---------------------------------------------------------------------------

func TestStore_PutPublishes(t *testing.T) {
	t.Parallel()
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	s := NewStore(b)
	s.Put(Deck{Slug: "a", Path: "/d/a.marp"})

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "deck.updated") {
			t.Errorf("message = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after Put")
	}
}

func TestStore_SlugChangeReplaces(t *testing.T) {
	t.Parallel()
	s := NewStore(nil)

	s.Put(Deck{Slug: "old", Path: "/d/a.marp"})
	s.Put(Deck{Slug: "new", Path: "/d/a.marp"})

	list := s.List()
	if len(list) != 1 || list[0].Slug != "new" {
		t.Errorf("List() = %+v", list)
	}
}

func TestStore_DuplicateSlugs(t *testing.T) {
	t.Parallel()
	s := NewStore(nil)

	tests := []struct {
		name string
		deck Deck
		want string
	}{
		{"first holder keeps slug", Deck{Slug: "intro", Path: "/a/intro.marp"}, "intro"},
		{"other path is suffixed", Deck{Slug: "intro", Path: "/b/intro.marp"}, "intro-2"},
		{"third path takes next suffix", Deck{Slug: "intro", Path: "/c/intro.marp"}, "intro-3"},
		{"rebuild keeps its suffix", Deck{Slug: "intro", Path: "/b/intro.marp"}, "intro-2"},
		{"rebuild of holder keeps slug", Deck{Slug: "intro", Path: "/a/intro.marp"}, "intro"},
	}
	for _, tt := range tests {
		if got := s.UniqueSlug(tt.deck.Slug, tt.deck.Path); got != tt.want {
			t.Errorf("%s: UniqueSlug() = %q, want %q", tt.name, got, tt.want)
		}
		if got := s.Put(tt.deck); got != tt.want {
			t.Errorf("%s: Put() = %q, want %q", tt.name, got, tt.want)
		}
	}

	if n := len(s.List()); n != 3 {
		t.Errorf("store has %d decks, want 3", n)
	}
	if d, _ := s.Get("intro-2"); d.Path != "/b/intro.marp" {
		t.Errorf("intro-2 path = %q", d.Path)
	}
}

func TestStore_RemovePath(t *testing.T) {
	t.Parallel()
	s := NewStore(nil)
	s.Put(Deck{Slug: "b", Path: "/d/b.marp"})
	s.Put(Deck{Slug: "a", Path: "/d/a.marp"})

	if got := s.List(); got[0].Slug != "a" || got[1].Slug != "b" {
		t.Errorf("List() not sorted: %+v", got)
	}
	if !s.RemovePath("/d/a.marp") {
		t.Error("RemovePath returned false")
	}
	if s.RemovePath("/d/a.marp") {
		t.Error("second RemovePath returned true")
	}
	if _, ok := s.Get("a"); ok {
		t.Error("deck still present")
	}
}

// ---------------------------------------------------------------------------
// TestRouter
// ---------------------------------------------------------------------------

func TestRouter_Index(t *testing.T) {
	t.Parallel()
	s, _, h := newTestServer(t, Options{})

	rec := get(t, h, "/")
	if !strings.Contains(rec.Body.String(), "No decks yet") {
		t.Errorf("empty index = %q", rec.Body.String())
	}

	s.Put(Deck{Slug: "intro", Title: "Intro <Talk>", Failed: true})
	body := get(t, h, "/").Body.String()
	if !strings.Contains(body, `href="/decks/intro"`) {
		t.Errorf("index missing link: %q", body)
	}
	if !strings.Contains(body, "Intro &lt;Talk&gt;") {
		t.Error("title not escaped")
	}
	if !strings.Contains(body, "render failed") {
		t.Error("failed marker missing")
	}
}

func TestRouter_Deck(t *testing.T) {
	t.Parallel()
	s, _, h := newTestServer(t, Options{})
	s.Put(Deck{Slug: "intro", HTML: "<html><head></head><body><section>1</section></body></html>"})

	rec := get(t, h, "/decks/intro")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `new EventSource("/events")`) {
		t.Error("reload script missing")
	}
	if !strings.Contains(body, "</script></head>") {
		t.Error("reload script not in head")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	if rec := get(t, h, "/decks/missing"); rec.Code != http.StatusNotFound {
		t.Errorf("missing deck status = %d", rec.Code)
	}
}

func TestRouter_Meta(t *testing.T) {
	t.Parallel()
	s, _, h := newTestServer(t, Options{})
	s.Put(Deck{Slug: "intro", Meta: map[string]any{"slug": "intro", "slidesCount": 3}})

	rec := get(t, h, "/decks/intro/meta")
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["slidesCount"] != float64(3) {
		t.Errorf("meta = %v", got)
	}

	if rec := get(t, h, "/decks/nope/meta"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRouter_List(t *testing.T) {
	t.Parallel()
	s, _, h := newTestServer(t, Options{})
	s.Put(Deck{Slug: "a", Title: "A", Path: "/d/a.marp"})

	var got []Summary
	if err := json.Unmarshal(get(t, h, "/decks").Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "A" || got[0].Path != "/d/a.marp" {
		t.Errorf("list = %+v", got)
	}
}

func TestRouter_Assets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.abc12345.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, h := newTestServer(t, Options{AssetsDir: dir})

	rec := get(t, h, "/_assets/logo.abc12345.png")
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Errorf("asset = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_Assets_EscapedName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a#b c.abc12345.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, h := newTestServer(t, Options{AssetsDir: dir})

	rec := get(t, h, "/_assets/a%23b%20c.abc12345.png")
	if rec.Code != http.StatusOK || rec.Body.String() != "png" {
		t.Errorf("asset = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_Events(t *testing.T) {
	t.Parallel()
	s, b, h := newTestServer(t, Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	s.Put(Deck{Slug: "live"})

	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if sc.Text() == "event: deck.updated" {
			return
		}
	}
	t.Fatal("deck.updated not received")
}

func TestReloadScript_EscapesSlug(t *testing.T) {
	t.Parallel()
	got := ReloadScript(`</script><b>`)
	if strings.Contains(got, "</script><b>") {
		t.Errorf("slug not escaped: %s", got)
	}
}
