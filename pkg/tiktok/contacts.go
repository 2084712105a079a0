package tiktok

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tokscope/tokscope/pkg/htmlutil"
	"github.com/tokscope/tokscope/pkg/report"
	"github.com/tokscope/tokscope/pkg/selector"
)

// socialKeywords route outbound links by host: a host carrying one of
// these is a social link, anything else is a plain website. x.com is
// matched exactly in isSocialURL so hosts like netflix.com do not
// classify as social.
var socialKeywords = []string{
	"instagram", "facebook", "twitter", "youtube",
	"linkedin", "snapchat", "telegram",
}

func isSocialURL(rawURL string) bool {
	host := urlHost(rawURL)
	if host == "" {
		return false
	}
	if host == "x.com" || strings.HasSuffix(host, ".x.com") {
		return true
	}
	return containsAny(host, socialKeywords)
}

func isSelfPlatformURL(rawURL string) bool {
	return strings.Contains(urlHost(rawURL), "tiktok")
}

func urlHost(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// contactSet accumulates values deduplicated by a normalized key.
type contactSet struct {
	seen map[string]bool
	vals []string
}

func newContactSet() *contactSet {
	return &contactSet{seen: make(map[string]bool)}
}

func (s *contactSet) add(val, key string) bool {
	if val == "" || s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.vals = append(s.vals, val)
	return true
}

// values never returns nil so empty categories export as [] rather
// than null.
func (s *contactSet) values() []string {
	if s.vals == nil {
		return []string{}
	}
	return s.vals
}

// Contacts mines contact signals for handle: email addresses, phone
// numbers, social platform links, and plain websites. bio is mined first
// so those signals survive even when the rendered page fails; pass the
// profile record's bio, or empty. Categories degrade independently, so
// an absent signal is an empty set rather than an error.
func (c *Client) Contacts(ctx context.Context, handle, bio string) (report.Contacts, error) {
	handle = c.val.Username(extractHandle(handle), "")
	if handle == "" {
		return report.Contacts{}, report.ErrBadHandle
	}

	c.logger.InfoContext(ctx, "extracting contact info", "handle", handle)

	emails := newContactSet()
	phones := newContactSet()
	socials := newContactSet()
	sites := newContactSet()
	finish := func() report.Contacts {
		return report.Contacts{
			Emails:      emails.values(),
			Phones:      phones.values(),
			SocialLinks: socials.values(),
			Websites:    sites.values(),
			ExtractedAt: report.Timestamp(time.Now()),
			Source:      report.SourceScrape,
		}
	}

	c.mineText(bio, "bio", emails, phones, sites)

	sess, err := c.engine.Open(ctx, profileURL(handle))
	if err != nil {
		c.logger.WarnContext(ctx, "profile page unavailable, returning bio signals only",
			"handle", handle, "error", err)
		return finish(), nil
	}
	defer sess.Close()

	if !sess.Wait(ctx, waitCSS(profileReady), c.limits.PageReadyWait) {
		c.logger.WarnContext(ctx, "profile page never became ready, returning bio signals only",
			"handle", handle)
		return finish(), nil
	}

	content, err := sess.HTML(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "reading profile page failed", "handle", handle, "error", err)
		return finish(), nil
	}
	if htmlutil.IsNotFound(content) {
		c.logger.WarnContext(ctx, "profile page is a not-found shell", "handle", handle)
		return finish(), nil
	}

	c.mineAnchors(content, socials, sites)

	// Captions only load as the feed scrolls.
	for range c.limits.CaptionScrolls {
		sess.ScrollBottom(ctx)
		sleep(ctx, c.limits.ScrollPause)
	}
	if scrolled, err := sess.HTML(ctx); err == nil {
		c.mineCaptions(scrolled, emails, phones, sites)
	} else {
		c.logger.WarnContext(ctx, "reading scrolled page failed", "handle", handle, "error", err)
	}

	result := finish()
	c.logger.InfoContext(ctx, "contact info extracted", "handle", handle,
		"emails", len(result.Emails), "phones", len(result.Phones),
		"social_links", len(result.SocialLinks), "websites", len(result.Websites))
	return result, nil
}

// mineText pulls emails, phone numbers, and website URLs out of free
// text. URLs pointing at social platforms or back at the platform itself
// are dropped; anchors, not text, decide social links.
func (c *Client) mineText(text, where string, emails, phones, sites *contactSet) {
	text = c.val.String(text, "")
	if text == "" {
		return
	}

	for _, e := range htmlutil.EmailAddresses(text) {
		if v := c.val.Email(e, ""); v != "" && emails.add(v, strings.ToLower(v)) {
			c.logger.Debug("found email", "in", where, "email", v)
		}
	}
	for _, p := range htmlutil.PhoneNumbers(text) {
		if phones.add(p, p) {
			c.logger.Debug("found phone number", "in", where, "phone", p)
		}
	}
	for _, u := range htmlutil.Links(text) {
		if isSocialURL(u) || isSelfPlatformURL(u) {
			continue
		}
		if v := c.val.URL(u, ""); v != "" && sites.add(v, htmlutil.NormalizeURL(v)) {
			c.logger.Debug("found website", "in", where, "url", v)
		}
	}
}

// mineAnchors routes outbound profile links: social platform hosts to
// social links, everything else to websites. Self links are dropped from
// both categories.
func (c *Client) mineAnchors(content string, socials, sites *contactSet) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		c.logger.Warn("parse profile page for links failed", "error", err)
		return
	}

	if sel, _, ok := selector.Resolve(doc, socialAnchorChain, c.logger); ok {
		sel.Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			v := c.val.URL(href, "")
			if v == "" || isSelfPlatformURL(v) || !isSocialURL(v) {
				return
			}
			if socials.add(v, htmlutil.NormalizeURL(v)) {
				c.logger.Debug("found social link", "url", v)
			}
		})
	}

	if sel, _, ok := selector.Resolve(doc, websiteAnchorChain, c.logger); ok {
		sel.Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			v := c.val.URL(href, "")
			if v == "" || isSelfPlatformURL(v) || isSocialURL(v) {
				return
			}
			if sites.add(v, htmlutil.NormalizeURL(v)) {
				c.logger.Debug("found website", "url", v)
			}
		})
	}
}

// mineCaptions extracts contact signals from video captions once the
// feed has been scrolled to load them.
func (c *Client) mineCaptions(content string, emails, phones, sites *contactSet) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		c.logger.Warn("parse scrolled page for captions failed", "error", err)
		return
	}
	for _, caption := range selector.Texts(doc, captionChain, c.logger) {
		c.mineText(caption, "caption", emails, phones, sites)
	}
}
