package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/tokscope/tokscope/pkg/count"
	"github.com/tokscope/tokscope/pkg/fetch"
	"github.com/tokscope/tokscope/pkg/htmlutil"
	"github.com/tokscope/tokscope/pkg/report"
	"github.com/tokscope/tokscope/pkg/selector"
)

// maxErrorLen caps the error text recorded on fallback records so one
// giant upstream message cannot bloat exported reports.
const maxErrorLen = 200

// Profile returns the account record for handle. Acquisition is tiered:
// the user detail API first, a rendered profile page second. When both
// fail the returned record is a fallback carrying the failure text, so a
// run always produces exactly one record per account. Only a handle that
// fails validation is an error.
func (c *Client) Profile(ctx context.Context, handle string) (report.Profile, error) {
	handle = c.val.Username(extractHandle(handle), "")
	if handle == "" {
		return report.Profile{}, report.ErrBadHandle
	}

	c.logger.InfoContext(ctx, "fetching profile", "handle", handle)

	p, apiErr := c.profileFromAPI(ctx, handle)
	if apiErr == nil {
		return p, nil
	}
	c.logger.DebugContext(ctx, "api fetch failed, falling back to rendered page",
		"handle", handle, "error", apiErr)

	p, err := c.profileFromPage(ctx, handle)
	if err == nil {
		return p, nil
	}
	if errors.Is(apiErr, report.ErrRateLimited) {
		// A throttled API usually means the page failure is throttling
		// too; record the root cause first.
		err = fmt.Errorf("%w; rendered page also failed: %v", report.ErrRateLimited, err)
	}
	c.logger.WarnContext(ctx, "profile extraction failed, recording fallback",
		"handle", handle, "error", err)
	return fallbackProfile(handle, err), nil
}

func fallbackProfile(handle string, err error) report.Profile {
	msg := err.Error()
	if r := []rune(msg); len(r) > maxErrorLen {
		msg = string(r[:maxErrorLen])
	}
	return report.Profile{
		Handle:      handle,
		DisplayName: handle,
		Source:      report.SourceFallback,
		ExtractedAt: report.Timestamp(time.Now()),
		Error:       msg,
	}
}

func (c *Client) profileFromAPI(ctx context.Context, handle string) (report.Profile, error) {
	body, err := c.fetcher.Get(ctx, apiURL(handle), nil)
	if err != nil {
		var httpErr *fetch.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
			return report.Profile{}, report.ErrRateLimited
		}
		return report.Profile{}, err
	}

	var payload struct {
		UserInfo *apiUserInfo `json:"userInfo"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return report.Profile{}, fmt.Errorf("decode user detail payload: %w", err)
	}
	if payload.UserInfo == nil {
		return report.Profile{}, errors.New("user detail payload has no userInfo")
	}

	c.logger.InfoContext(ctx, "profile fetched from api", "handle", handle)
	return c.buildProfile(handle, *payload.UserInfo, report.SourceAPI), nil
}

// buildProfile maps a structured userInfo payload onto a record,
// clamping stats into configured bounds.
func (c *Client) buildProfile(handle string, info apiUserInfo, source string) report.Profile {
	return report.Profile{
		Handle:         handle,
		DisplayName:    c.val.String(info.User.Nickname, handle),
		Bio:            c.val.String(info.User.Signature, ""),
		FollowerCount:  c.val.Int(info.Stats.FollowerCount, 0, c.limits.MaxFollowers),
		FollowingCount: c.val.Int(info.Stats.FollowingCount, 0, c.limits.MaxFollowing),
		LikeCount:      c.val.Int(info.Stats.HeartCount, 0, c.limits.MaxLikes),
		VideoCount:     c.val.Int(info.Stats.VideoCount, 0, c.limits.MaxVideos),
		Verified:       info.User.Verified,
		Private:        info.User.PrivateAccount,
		Source:         source,
		ExtractedAt:    report.Timestamp(time.Now()),
	}
}

func (c *Client) profileFromPage(ctx context.Context, handle string) (report.Profile, error) {
	sess, err := c.engine.Open(ctx, profileURL(handle))
	if err != nil {
		return report.Profile{}, fmt.Errorf("open profile page: %w", err)
	}
	defer sess.Close()

	if !sess.Wait(ctx, waitCSS(profileReady), c.limits.PageReadyWait) {
		return report.Profile{}, errors.New("profile page never became ready")
	}

	content, err := sess.HTML(ctx)
	if err != nil {
		return report.Profile{}, err
	}
	return c.parseProfilePage(handle, content)
}

// parseProfilePage extracts a record from rendered profile page HTML.
// A page that is a not-found shell or a bot-check redirect is a failure,
// not an empty profile.
func (c *Client) parseProfilePage(handle, content string) (report.Profile, error) {
	if htmlutil.IsNotFound(content) {
		return report.Profile{}, report.ErrNotFound
	}
	if target := htmlutil.ExtractRedirectURL(content); target != "" {
		return report.Profile{}, fmt.Errorf("page redirects to %s instead of serving a profile", target)
	}

	// Rendered pages embed the same structured payload the API serves;
	// prefer it over markup whenever present.
	if info, ok := hydrationUserInfo(content); ok {
		return c.buildProfile(handle, info, report.SourceScrape), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return report.Profile{}, fmt.Errorf("parse profile page: %w", err)
	}

	name, _ := selector.Text(doc, displayNameChain, c.logger)
	bio, _ := selector.Text(doc, bioChain, c.logger)
	stats := c.classifyStats(selector.Texts(doc, statsChain, c.logger))
	_, _, verified := selector.Resolve(doc, verifiedChain, c.logger)
	_, _, private := selector.Resolve(doc, privateChain, c.logger)

	return report.Profile{
		Handle:         handle,
		DisplayName:    c.val.String(name, handle),
		Bio:            c.val.String(bio, ""),
		FollowerCount:  c.val.Int(stats.followers, 0, c.limits.MaxFollowers),
		FollowingCount: c.val.Int(stats.following, 0, c.limits.MaxFollowing),
		LikeCount:      c.val.Int(stats.likes, 0, c.limits.MaxLikes),
		VideoCount:     c.val.Int(stats.videos, 0, c.limits.MaxVideos),
		Verified:       verified,
		Private:        private,
		Source:         report.SourceScrape,
		ExtractedAt:    report.Timestamp(time.Now()),
	}, nil
}

type statCounts struct {
	followers int64
	following int64
	likes     int64
	videos    int64
}

// Keyword sets classifying stat tokens on rendered pages, covering the
// English and Arabic label variants the site serves.
var (
	followerWords  = []string{"follower", "fans", "متابع", "مشترك"}
	followingWords = []string{"following", "متابَع", "يتابع"}
	likeWords      = []string{"like", "إعجاب"}
	videoWords     = []string{"video", "فيديو"}
)

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// classifyStats pairs keyword tokens with the value that follows them;
// tokens carrying both ("1.2M Followers") provide their own value. A
// follower figure above the plausibility ceiling is treated as a
// misclassified token and zeroed rather than exported.
func (c *Client) classifyStats(tokens []string) statCounts {
	var s statCounts
	if len(tokens) == 0 {
		c.logger.Warn("no statistics tokens found on profile page")
		return s
	}

	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		switch {
		case containsAny(lower, followerWords):
			s.followers = count.Parse(statValue(tokens, i))
			if s.followers > c.limits.PlausibleFollowerCeiling {
				c.logger.Warn("implausible follower count, discarding", "value", s.followers)
				s.followers = 0
			}
		case containsAny(lower, followingWords):
			s.following = count.Parse(statValue(tokens, i))
			if s.following > c.limits.MaxFollowing {
				c.logger.Warn("suspicious following count", "value", s.following)
			}
		case containsAny(lower, likeWords):
			s.likes = count.Parse(statValue(tokens, i))
		case containsAny(lower, videoWords):
			s.videos = count.Parse(statValue(tokens, i))
		}
	}

	if s.followers == 0 && s.following == 0 && s.likes == 0 {
		c.logger.Warn("could not classify any statistics tokens")
	}
	return s
}

// statValue picks the numeric value for the keyword token at index i:
// the first digit-bearing field of the token itself, or the next token.
func statValue(tokens []string, i int) string {
	for _, f := range strings.Fields(tokens[i]) {
		if strings.ContainsFunc(f, unicode.IsDigit) {
			return f
		}
	}
	if i+1 < len(tokens) {
		return tokens[i+1]
	}
	return "0"
}
