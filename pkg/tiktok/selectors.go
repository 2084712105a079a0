package tiktok

import (
	"strings"

	"github.com/tokscope/tokscope/pkg/selector"
)

// Selector chains for every extraction point, ordered most-specific
// first. The site rotates generated class names across releases, so each
// chain carries the data-e2e attributes, the semantic class names, and
// the generated ones seen in the wild. Markup changes land here, not in
// extraction code.

var profileReady = selector.Chain{
	{Name: "user page", CSS: "[data-e2e='user-page']"},
	{Name: "user info", CSS: ".user-info"},
	{Name: "profile info", CSS: ".profile-info"},
	{Name: "share layout", CSS: ".tiktok-1g04lal-DivShareLayoutHeader"},
	{Name: "heading", CSS: "h1, h2"},
}

var displayNameChain = selector.Chain{
	{Name: "user subtitle", CSS: "[data-e2e='user-subtitle']"},
	{Name: "share title", CSS: ".tiktok-1d3irth-H2ShareTitle, .css-1r3ljid-H2ShareTitle"},
	{Name: "nickname", CSS: ".nickname, .profile-name"},
	{Name: "info heading", CSS: ".user-info h1"},
	{Name: "heading", CSS: "h1, h2"},
}

var bioChain = selector.Chain{
	{Name: "user bio", CSS: "[data-e2e='user-bio']"},
	{Name: "share desc", CSS: ".tiktok-1n8z9r7-H2ShareDesc, .css-1aq6wh4-H2ShareDesc"},
	{Name: "bio", CSS: ".user-bio, .signature, .profile-bio"},
}

var statsChain = selector.Chain{
	{Name: "count spans", CSS: ".count-infos span, .user-stats span, .profile-stats span, " +
		".tiktok-7k173h-StrongText, [data-e2e='followers-count'], [data-e2e='following-count'], " +
		"[data-e2e='likes-count'], .css-1aq6wh4-StrongText"},
	{Name: "number blocks", CSS: ".tiktok-xeexlu-DivNumber, .tiktok-1kd69pk-DivNumber"},
}

var verifiedChain = selector.Chain{
	{Name: "verified badge", CSS: "[data-e2e='user-verified'], .verified-badge, .verify-badge"},
}

var privateChain = selector.Chain{
	{Name: "private marker", CSS: ".private-account, .lock-icon"},
}

// Relationship list controls carry a Contains filter because the link
// text, not the markup, is what identifies them on localized pages.
var followersTrigger = selector.Chain{
	{Name: "followers href", CSS: "a[href*='/followers']"},
	{Name: "followers text", CSS: "a", Contains: "followers"},
	{Name: "followers text ar", CSS: "a", Contains: "متابعين"},
	{Name: "followers count", CSS: "[data-e2e='followers-count'], .tiktok-xeexlu-DivNumber a, .tiktok-1kd69pk-DivNumber a"},
	{Name: "followers tab", CSS: ".followers-link, .tiktok-1xiuanb-ButtonFollowTabs"},
}

var followingTrigger = selector.Chain{
	{Name: "following href", CSS: "a[href*='/following']"},
	{Name: "following text", CSS: "a", Contains: "following"},
	{Name: "following count", CSS: "[data-e2e='following-count']"},
}

var followersListReady = selector.Chain{
	{Name: "follower list", CSS: ".follower-list, .followers-list, .user-list"},
}

var followingListReady = selector.Chain{
	{Name: "following list", CSS: ".following-list, .user-list"},
}

var followerItems = selector.Chain{
	{Name: "follower items", CSS: ".follower-item, .user-item, .user-card"},
}

var followingItems = selector.Chain{
	{Name: "following items", CSS: ".following-item, .user-item, .user-card"},
}

var relationHandle = selector.Chain{
	{Name: "item handle", CSS: ".username, .user-username, .unique-id"},
}

var relationName = selector.Chain{
	{Name: "item nickname", CSS: ".nickname, .user-nickname, .display-name"},
}

var relationStats = selector.Chain{
	{Name: "item stats", CSS: ".user-stats span, .count span"},
}

var socialAnchorChain = selector.Chain{
	{Name: "platform hrefs", CSS: "a[href*='instagram'], a[href*='facebook'], a[href*='twitter'], " +
		"a[href*='youtube'], a[href*='linkedin'], a[href*='snapchat']"},
	{Name: "share links", CSS: ".tiktok-1b4xcc5-DivShareLinks a, [data-e2e='user-social-link'], .css-1b4xcc5-DivShareLinks a"},
	{Name: "instagram", CSS: "a[href*='instagram.com'], a[data-e2e='instagram-link']"},
	{Name: "youtube", CSS: "a[href*='youtube.com'], a[data-e2e='youtube-link']"},
	{Name: "twitter", CSS: "a[href*='twitter.com'], a[href*='x.com'], a[data-e2e='twitter-link']"},
}

var websiteAnchorChain = selector.Chain{
	{Name: "http anchors", CSS: "a[href^='http']"},
	{Name: "bio website", CSS: ".tiktok-1b4xcc5-DivShareLinks a[href^='http']:not([href*='tiktok']), [data-e2e='user-website']"},
	{Name: "link in bio", CSS: ".link-in-bio, .website-link"},
}

var captionChain = selector.Chain{
	{Name: "captions", CSS: ".video-description, .video-caption, .video-meta-caption"},
}

var searchReady = selector.Chain{
	{Name: "search feed", CSS: ".video-feed, .search-results, .video-card"},
}

var searchItems = selector.Chain{
	{Name: "search cards", CSS: ".video-feed .video-item, .search-results .video-card, .video-feed-item"},
}

var hashtagReady = selector.Chain{
	{Name: "challenge feed", CSS: ".video-feed, .challenge-feed"},
	{Name: "item containers", CSS: ".tiktok-x6y88p-DivItemContainerV2, .tiktok-1qb12g8-DivThreeColumnContainer"},
	{Name: "challenge cards", CSS: "[data-e2e='challenge-item'], [data-e2e='search-card-item']"},
	{Name: "css containers", CSS: ".css-x6y88p-DivItemContainerV2, .css-1qb12g8-DivThreeColumnContainer"},
}

var hashtagItems = selector.Chain{
	{Name: "hashtag cards", CSS: ".video-feed .video-item, .challenge-feed .video-card, " +
		".tiktok-x6y88p-DivItemContainerV2, [data-e2e='challenge-item'], [data-e2e='search-card-item'], " +
		".css-x6y88p-DivItemContainerV2"},
}

var cardAuthor = selector.Chain{
	{Name: "author handle", CSS: ".author-uniqueId, .video-username, .creator-username, .author-username"},
	{Name: "creator tag", CSS: ".tiktok-arkop9-DivCreatorTag span, [data-e2e='video-author-uniqueid']"},
	{Name: "css creator tag", CSS: ".css-arkop9-DivCreatorTag span"},
}

var cardNickname = selector.Chain{
	{Name: "author nickname", CSS: ".author-nickname, .video-author, .creator-nickname"},
	{Name: "author name", CSS: ".tiktok-2zn17h-PAuthorName, [data-e2e='video-author-nickname']"},
	{Name: "css author name", CSS: ".css-2zn17h-PAuthorName"},
}

var cardDate = selector.Chain{
	{Name: "post date", CSS: ".video-date, .video-timestamp, .video-time"},
	{Name: "publish time", CSS: ".tiktok-1wrhn5c-PTime, [data-e2e='video-publish-time']"},
	{Name: "css publish time", CSS: ".css-1wrhn5c-PTime"},
}

// waitCSS flattens a chain into one comma-joined group for in-browser
// waits, where any strategy matching means the content is ready. Queries
// with text filters are excluded; text matching happens after parsing.
func waitCSS(chain selector.Chain) string {
	parts := make([]string, 0, len(chain))
	for _, q := range chain {
		if q.Contains == "" {
			parts = append(parts, q.CSS)
		}
	}
	return strings.Join(parts, ", ")
}
