package tiktok

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tokscope/tokscope/pkg/count"
	"github.com/tokscope/tokscope/pkg/render"
	"github.com/tokscope/tokscope/pkg/report"
	"github.com/tokscope/tokscope/pkg/selector"
)

// relationList bundles the chains for one list kind so followers and
// following share the same extraction path.
type relationList struct {
	kind      string
	trigger   selector.Chain
	listReady selector.Chain
	items     selector.Chain
}

var (
	followersList = relationList{
		kind:      "followers",
		trigger:   followersTrigger,
		listReady: followersListReady,
		items:     followerItems,
	}
	followingList = relationList{
		kind:      "following",
		trigger:   followingTrigger,
		listReady: followingListReady,
		items:     followingItems,
	}
)

// Followers returns the accounts following handle. The platform
// restricts list access for most accounts, so an empty result with no
// error means the list control was missing or never loaded; callers fall
// back to the approximate count on the profile record.
func (c *Client) Followers(ctx context.Context, handle string) ([]report.Relationship, error) {
	return c.relationships(ctx, handle, followersList)
}

// Following returns the accounts handle follows, under the same access
// caveats as Followers.
func (c *Client) Following(ctx context.Context, handle string) ([]report.Relationship, error) {
	return c.relationships(ctx, handle, followingList)
}

func (c *Client) relationships(ctx context.Context, handle string, list relationList) ([]report.Relationship, error) {
	handle = c.val.Username(extractHandle(handle), "")
	if handle == "" {
		return nil, report.ErrBadHandle
	}

	c.logger.InfoContext(ctx, "extracting relationship list", "kind", list.kind, "handle", handle)

	sess, err := c.engine.Open(ctx, profileURL(handle))
	if err != nil {
		return nil, fmt.Errorf("open profile page: %w", err)
	}
	defer sess.Close()

	if !sess.Wait(ctx, waitCSS(profileReady), c.limits.PageReadyWait) {
		return nil, fmt.Errorf("profile page never became ready for %s list", list.kind)
	}

	if !c.openList(ctx, sess, list) {
		c.logger.InfoContext(ctx, "list control not found, access is restricted",
			"kind", list.kind, "handle", handle)
		return nil, nil
	}

	if !sess.Wait(ctx, waitCSS(list.listReady), c.limits.PageReadyWait) {
		c.logger.InfoContext(ctx, "list never loaded after opening",
			"kind", list.kind, "handle", handle)
		return nil, nil
	}

	// Lists load on infinite scroll.
	for range c.limits.ListScrolls {
		sess.ScrollBottom(ctx)
		sleep(ctx, c.limits.ScrollPause)
	}

	content, err := sess.HTML(ctx)
	if err != nil {
		return nil, err
	}

	entries := c.parseRelationships(content, list)
	c.logger.InfoContext(ctx, "relationship list extracted",
		"kind", list.kind, "handle", handle, "count", len(entries))
	return entries, nil
}

// openList tries each trigger strategy until one clicks.
func (c *Client) openList(ctx context.Context, sess render.Session, list relationList) bool {
	for _, q := range list.trigger {
		if sess.Click(ctx, q.CSS, q.Contains, c.limits.ClickWait) {
			c.logger.DebugContext(ctx, "list control clicked", "kind", list.kind, "strategy", q.Name)
			return true
		}
	}
	return false
}

// parseRelationships extracts entries from rendered list HTML, skipping
// items with no resolvable handle.
func (c *Client) parseRelationships(content string, list relationList) []report.Relationship {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		c.logger.Warn("parse list page failed", "kind", list.kind, "error", err)
		return nil
	}

	items, _, ok := selector.Resolve(doc, list.items, c.logger)
	if !ok {
		return nil
	}

	var entries []report.Relationship
	items.Each(func(_ int, item *goquery.Selection) {
		name, _ := selector.Text(item, relationHandle, c.logger)
		h := c.val.Username(name, "")
		if h == "" {
			return
		}

		display, _ := selector.Text(item, relationName, c.logger)
		entry := report.Relationship{
			Handle:      h,
			DisplayName: c.val.String(display, h),
		}

		stats := selector.Texts(item, relationStats, c.logger)
		for i, stat := range stats {
			lower := strings.ToLower(stat)
			switch {
			case containsAny(lower, followerWords):
				entry.FollowerCount = c.val.Int(count.Parse(statValue(stats, i)), 0, c.limits.MaxFollowers)
			case containsAny(lower, followingWords):
				entry.FollowingCount = c.val.Int(count.Parse(statValue(stats, i)), 0, c.limits.MaxFollowing)
			}
		}

		entries = append(entries, entry)
	})
	return entries
}
