package tiktok

import (
	"encoding/json"
	"regexp"
)

// apiUser and apiStats mirror the userInfo payload served by the user
// detail API. Rendered profile pages embed the same shape in their
// rehydration data, so both acquisition paths decode into these.
type apiUser struct {
	UniqueID       string `json:"uniqueId"`
	Nickname       string `json:"nickname"`
	Signature      string `json:"signature"`
	Verified       bool   `json:"verified"`
	PrivateAccount bool   `json:"privateAccount"`
}

type apiStats struct {
	FollowerCount  int64 `json:"followerCount"`
	FollowingCount int64 `json:"followingCount"`
	HeartCount     int64 `json:"heartCount"`
	VideoCount     int64 `json:"videoCount"`
}

type apiUserInfo struct {
	User  apiUser  `json:"user"`
	Stats apiStats `json:"stats"`
}

// Match: <script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">{...}</script>
var universalDataRe = regexp.MustCompile(`<script[^>]*id="__UNIVERSAL_DATA_FOR_REHYDRATION__"[^>]*>([^<]+)</script>`)

// hydrationUserInfo digs the embedded rehydration payload out of a
// rendered profile page. ok is false when the script tag is absent or
// the payload does not carry user details.
func hydrationUserInfo(content string) (apiUserInfo, bool) {
	m := universalDataRe.FindStringSubmatch(content)
	if len(m) < 2 {
		return apiUserInfo{}, false
	}

	var payload struct {
		DefaultScope struct {
			UserDetail struct {
				UserInfo *apiUserInfo `json:"userInfo"`
			} `json:"webapp.user-detail"`
		} `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return apiUserInfo{}, false
	}
	info := payload.DefaultScope.UserDetail.UserInfo
	if info == nil || info.User.UniqueID == "" {
		return apiUserInfo{}, false
	}
	return *info, true
}
