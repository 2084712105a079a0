package tiktok

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tokscope/tokscope/pkg/report"
)

const searchResultsPage = `<html><body><div class="video-feed">
<div class="video-item"><span class="author-uniqueId">fan1</span><span class="author-nickname">Fan One</span><span class="video-date">2024-03-01</span></div>
<div class="video-item"><span class="author-uniqueId">fan2</span></div>
<div class="video-item"><span class="author-uniqueId">fan1</span><span class="video-date">2024-05-09</span></div>
<div class="video-item"><span class="author-uniqueId">@acme</span></div>
</div></body></html>`

func TestTagged(t *testing.T) {
	sess := &fakeSession{ready: true, html: searchResultsPage}
	engine := &fakeEngine{pages: map[string]*fakeSession{searchURL("acme"): sess}}
	c := testClient(t, engine, "")

	today := time.Now().Format(report.DateLayout)
	got, err := c.Tagged(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Tagged() error = %v", err)
	}

	want := []report.TaggedUser{
		{Handle: "fan1", DisplayName: "Fan One", PostCount: 2, LastTagged: "2024-05-09"},
		{Handle: "fan2", DisplayName: "fan2", PostCount: 1, LastTagged: today},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tagged() mismatch (-want +got):\n%s", diff)
	}

	opened := engine.openedURLs()
	if len(opened) != 1 || opened[0] != searchURL("acme") {
		t.Errorf("opened %v, want the search page only", opened)
	}
	if sess.scrolls != fastLimits().SearchScrolls {
		t.Errorf("scrolls = %d, want %d", sess.scrolls, fastLimits().SearchScrolls)
	}
}

func TestTaggedHashtagFallback(t *testing.T) {
	searchSess := &fakeSession{ready: true, html: `<html><body><div class="video-feed">No results found</div></body></html>`}
	tagSess := &fakeSession{
		ready:   true,
		heights: []int{1000, 1000},
		html: `<html><body><div class="challenge-feed">
<div class="video-card"><span class="creator-username">tagger</span><span class="video-date">2024-01-15</span></div>
</div></body></html>`,
	}
	engine := &fakeEngine{pages: map[string]*fakeSession{
		searchURL("acme"): searchSess,
		tagURL("acme"):    tagSess,
	}}
	c := testClient(t, engine, "")

	got, err := c.Tagged(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Tagged() error = %v", err)
	}

	want := []report.TaggedUser{
		{Handle: "tagger", DisplayName: "tagger", PostCount: 1, LastTagged: "2024-01-15"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tagged() mismatch (-want +got):\n%s", diff)
	}

	wantOpened := []string{searchURL("acme"), tagURL("acme")}
	if diff := cmp.Diff(wantOpened, engine.openedURLs()); diff != "" {
		t.Errorf("opened pages mismatch (-want +got):\n%s", diff)
	}
	if tagSess.scrolls != 1 {
		t.Errorf("hashtag scrolls = %d, want 1 once the page stops growing", tagSess.scrolls)
	}
}

func TestCollectTaggedHeightBound(t *testing.T) {
	tests := []struct {
		name    string
		heights []int
		want    int
	}{
		{"stops when growth stalls", []int{1000, 2000, 2000}, 2},
		{"bounded by scroll budget", []int{1000, 2000, 3000, 4000}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{ready: true, heights: tt.heights, html: "<html><body></body></html>"}
			engine := &fakeEngine{pages: map[string]*fakeSession{tagURL("acme"): sess}}
			c := testClient(t, engine, "")

			agg := newTagAggregator("acme")
			if err := c.collectTagged(context.Background(), tagURL("acme"), hashtagReady, hashtagItems, true, agg); err != nil {
				t.Fatalf("collectTagged() error = %v", err)
			}
			if sess.scrolls != tt.want {
				t.Errorf("scrolls = %d, want %d", sess.scrolls, tt.want)
			}
		})
	}
}

func TestTaggedNothingFound(t *testing.T) {
	engine := &fakeEngine{pages: map[string]*fakeSession{}}
	c := testClient(t, engine, "")

	got, err := c.Tagged(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Tagged() error = %v, finding nobody is not an error", err)
	}
	if got == nil {
		t.Fatal("Tagged() = nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("Tagged() = %v, want empty", got)
	}

	wantOpened := []string{searchURL("acme"), tagURL("acme")}
	if diff := cmp.Diff(wantOpened, engine.openedURLs()); diff != "" {
		t.Errorf("opened pages mismatch (-want +got):\n%s", diff)
	}
}

func TestTaggedOpenErrors(t *testing.T) {
	engine := &fakeEngine{openErr: errors.New("browser launch failed")}
	c := testClient(t, engine, "")

	got, err := c.Tagged(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Tagged() error = %v, page failures degrade to empty", err)
	}
	if len(got) != 0 {
		t.Errorf("Tagged() = %v, want empty", got)
	}
}

func TestTaggedBadHandle(t *testing.T) {
	c := testClient(t, &fakeEngine{}, "")

	if _, err := c.Tagged(context.Background(), "!!!"); !errors.Is(err, report.ErrBadHandle) {
		t.Errorf("Tagged() error = %v, want ErrBadHandle", err)
	}
}

func TestTagAggregator(t *testing.T) {
	agg := newTagAggregator("acme")
	if !agg.empty() {
		t.Error("empty() = false for a fresh aggregator")
	}

	agg.sighting("x", "X", "2024-02-01")
	agg.sighting("y", "Y", "2024-03-01")
	agg.sighting("x", "X", "2024-01-01") // older date must not regress LastTagged
	agg.sighting("y", "Y", "2024-04-01")

	want := []report.TaggedUser{
		{Handle: "x", DisplayName: "X", PostCount: 2, LastTagged: "2024-02-01"},
		{Handle: "y", DisplayName: "Y", PostCount: 2, LastTagged: "2024-04-01"},
	}
	if diff := cmp.Diff(want, agg.sorted()); diff != "" {
		t.Errorf("sorted() mismatch (-want +got):\n%s", diff)
	}
}
