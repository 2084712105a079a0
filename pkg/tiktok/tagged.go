package tiktok

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tokscope/tokscope/pkg/htmlutil"
	"github.com/tokscope/tokscope/pkg/report"
	"github.com/tokscope/tokscope/pkg/selector"
)

// Tagged returns accounts that mention handle in their posts, most
// active first. Mention search runs first; when it yields nothing the
// hashtag page for the handle is tried. Finding nobody is an expected
// outcome and returns an empty list.
func (c *Client) Tagged(ctx context.Context, handle string) ([]report.TaggedUser, error) {
	handle = c.val.Username(extractHandle(handle), "")
	if handle == "" {
		return nil, report.ErrBadHandle
	}

	c.logger.InfoContext(ctx, "searching for accounts tagging target", "handle", handle)

	agg := newTagAggregator(handle)

	if err := c.collectTagged(ctx, searchURL(handle), searchReady, searchItems, false, agg); err != nil {
		c.logger.WarnContext(ctx, "mention search failed", "handle", handle, "error", err)
	}

	if agg.empty() {
		c.logger.InfoContext(ctx, "no tagged users in mention search, trying hashtag page", "handle", handle)
		if err := c.collectTagged(ctx, tagURL(handle), hashtagReady, hashtagItems, true, agg); err != nil {
			c.logger.WarnContext(ctx, "hashtag search failed", "handle", handle, "error", err)
		}
	}

	users := agg.sorted()
	c.logger.InfoContext(ctx, "tag search finished", "handle", handle, "count", len(users))
	return users, nil
}

// collectTagged opens pageURL, waits for result cards, scrolls to load
// more, and feeds every card into the aggregator. heightBounded stops
// scrolling once the document stops growing.
func (c *Client) collectTagged(ctx context.Context, pageURL string, ready, items selector.Chain, heightBounded bool, agg *tagAggregator) error {
	sess, err := c.engine.Open(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("open results page: %w", err)
	}
	defer sess.Close()

	if !sess.Wait(ctx, waitCSS(ready), c.limits.SearchWait) {
		c.logger.Info("no results appeared", "url", pageURL)
		return nil
	}

	if heightBounded {
		last := sess.Height(ctx)
		for range c.limits.SearchScrolls {
			sess.ScrollBottom(ctx)
			sleep(ctx, c.limits.ScrollPause)
			h := sess.Height(ctx)
			if h == last {
				break
			}
			last = h
		}
	} else {
		for range c.limits.SearchScrolls {
			sess.ScrollBottom(ctx)
			sleep(ctx, c.limits.ScrollPause)
		}
	}

	content, err := sess.HTML(ctx)
	if err != nil {
		return err
	}
	if htmlutil.IsEmptyResults(content) {
		c.logger.Info("results page reports no matches", "url", pageURL)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("parse results page: %w", err)
	}

	cards, _, ok := selector.Resolve(doc, items, c.logger)
	if !ok {
		return nil
	}
	cards.Each(func(_ int, card *goquery.Selection) {
		c.recordCard(card, agg)
	})
	return nil
}

// recordCard extracts the author of one result card. Cards whose author
// is missing or is the target account itself are skipped.
func (c *Client) recordCard(card *goquery.Selection, agg *tagAggregator) {
	author, _ := selector.Text(card, cardAuthor, c.logger)
	h := c.val.Username(author, "")
	if h == "" || strings.EqualFold(h, agg.target) {
		return
	}

	display, _ := selector.Text(card, cardNickname, c.logger)
	date, ok := selector.Text(card, cardDate, c.logger)
	if !ok || date == "" {
		date = time.Now().Format(report.DateLayout)
	}
	agg.sighting(h, c.val.String(display, h), date)
}

// tagAggregator keeps one entry per author across both search passes.
// Repeat sightings raise the post count and advance the latest date.
type tagAggregator struct {
	target  string
	order   []string
	entries map[string]*report.TaggedUser
}

func newTagAggregator(target string) *tagAggregator {
	return &tagAggregator{target: target, entries: make(map[string]*report.TaggedUser)}
}

func (a *tagAggregator) empty() bool { return len(a.entries) == 0 }

func (a *tagAggregator) sighting(handle, display, date string) {
	if cur, ok := a.entries[handle]; ok {
		cur.PostCount++
		// ISO dates compare lexicographically.
		if date > cur.LastTagged {
			cur.LastTagged = date
		}
		return
	}
	a.entries[handle] = &report.TaggedUser{
		Handle:      handle,
		DisplayName: display,
		PostCount:   1,
		LastTagged:  date,
	}
	a.order = append(a.order, handle)
}

// sorted returns entries by descending post count, first-seen order
// breaking ties.
func (a *tagAggregator) sorted() []report.TaggedUser {
	users := make([]report.TaggedUser, 0, len(a.order))
	for _, h := range a.order {
		users = append(users, *a.entries[h])
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].PostCount > users[j].PostCount
	})
	return users
}
