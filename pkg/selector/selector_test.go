package selector

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return d
}

func TestResolveOrderedFallback(t *testing.T) {
	d := doc(t, `<div><h2 class="title">Second</h2><p class="name">Third</p></div>`)
	chain := Chain{
		{Name: "primary", CSS: "h1.missing"},
		{Name: "secondary", CSS: "h2.title"},
		{Name: "tertiary", CSS: "p.name"},
	}

	sel, matched, ok := Resolve(d, chain, nil)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if matched.Name != "secondary" {
		t.Errorf("matched strategy = %q, want %q", matched.Name, "secondary")
	}
	if got := strings.TrimSpace(sel.First().Text()); got != "Second" {
		t.Errorf("matched text = %q, want %q", got, "Second")
	}
}

func TestResolveAllFail(t *testing.T) {
	d := doc(t, `<div><span>content</span></div>`)
	chain := Chain{
		{Name: "a", CSS: ".missing"},
		{Name: "b", CSS: "#absent"},
	}

	_, _, ok := Resolve(d, chain, nil)
	if ok {
		t.Error("Resolve() ok = true, want false when no strategy matches")
	}
}

func TestResolveContainsFilter(t *testing.T) {
	d := doc(t, `<nav>
		<a href="/videos">Videos</a>
		<a href="/list">845 Followers</a>
	</nav>`)
	chain := Chain{
		{Name: "follower link", CSS: "a", Contains: "followers"},
	}

	sel, _, ok := Resolve(d, chain, nil)
	if !ok {
		t.Fatal("Resolve() ok = false, want true")
	}
	if href, _ := sel.First().Attr("href"); href != "/list" {
		t.Errorf("matched href = %q, want %q", href, "/list")
	}
}

func TestText(t *testing.T) {
	d := doc(t, `<h1>  Display Name  </h1>`)
	got, ok := Text(d, Chain{{Name: "h1", CSS: "h1"}}, nil)
	if !ok || got != "Display Name" {
		t.Errorf("Text() = %q, %v, want %q, true", got, ok, "Display Name")
	}

	if _, ok := Text(d, Chain{{Name: "missing", CSS: ".nope"}}, nil); ok {
		t.Error("Text() ok = true for missing element, want false")
	}
}

func TestTexts(t *testing.T) {
	d := doc(t, `<ul><li>one</li><li>  </li><li>two</li></ul>`)
	got := Texts(d, Chain{{Name: "items", CSS: "li"}}, nil)
	want := []string{"one", "two"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Texts() mismatch (-want +got):\n%s", diff)
	}
}

func TestAttr(t *testing.T) {
	d := doc(t, `<a class="ext" href="https://example.com"> link </a>`)
	got, ok := Attr(d, Chain{{Name: "link", CSS: "a.ext"}}, "href", nil)
	if !ok || got != "https://example.com" {
		t.Errorf("Attr() = %q, %v, want %q, true", got, ok, "https://example.com")
	}

	if _, ok := Attr(d, Chain{{Name: "link", CSS: "a.ext"}}, "data-id", nil); ok {
		t.Error("Attr() ok = true for absent attribute, want false")
	}
}

func TestResolveScopedToSelection(t *testing.T) {
	d := doc(t, `<div class="card"><span class="user">alice</span></div>
		<div class="card"><span class="user">bob</span></div>`)

	cards := d.Find("div.card")
	var users []string
	cards.Each(func(_ int, card *goquery.Selection) {
		if name, ok := Text(card, Chain{{Name: "user", CSS: "span.user"}}, nil); ok {
			users = append(users, name)
		}
	})

	want := []string{"alice", "bob"}
	if diff := cmp.Diff(want, users); diff != "" {
		t.Errorf("scoped resolve mismatch (-want +got):\n%s", diff)
	}
}
