/*
Package user holds the account rules that do not depend on storage: credential checks,
profile field limits, the ordered top-friends list, the block list and the daily
featured-user pick.
*/
package user

import (
	"net/url"
	"regexp"
	"slices"
	"time"

	"punkspace/internal/pkg/errs"
)

const (
	// TopFriendsCap is the maximum number of top friends shown on a profile.
	TopFriendsCap = 8

	MinPasswordLength = 6
	// MaxPasswordLength matches bcrypt's input limit.
	MaxPasswordLength = 72

	MaxBioLength         = 2000
	MaxProfileCSSLength  = 20000
	MaxProfileHTMLLength = 50000
	MaxURLLength         = 2048
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{2,20}$`)

// ValidateCredentials checks the shape of a username and password before hashing.
func ValidateCredentials(username, password string) *errs.CustomError {
	if !usernamePattern.MatchString(username) {
		return errs.NewError(errs.ErrInvalidUsername)
	}

	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return errs.NewError(errs.ErrInvalidPassword)
	}

	return nil
}

// Profile is the editable part of a user's page.
type Profile struct {
	AvatarURL   string `json:"avatar_url"`
	Bio         string `json:"bio"`
	ProfileCSS  string `json:"profile_css"`
	ProfileHTML string `json:"profile_html"`
	MediaURL    string `json:"media_url"`
}

// Validate enforces length caps and that URLs are empty, site-relative or http(s).
// CSS and HTML are stored verbatim.
func (p Profile) Validate() *errs.CustomError {
	switch {
	case len(p.Bio) > MaxBioLength,
		len(p.ProfileCSS) > MaxProfileCSSLength,
		len(p.ProfileHTML) > MaxProfileHTMLLength:
		return errs.NewError(errs.ErrInvalidParams)
	}

	for _, raw := range []string{p.AvatarURL, p.MediaURL} {
		if !validURL(raw) {
			return errs.NewError(errs.ErrInvalidParams)
		}
	}

	return nil
}

func validURL(raw string) bool {
	if raw == "" {
		return true
	}
	if len(raw) > MaxURLLength {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if u.Scheme == "" {
		// Site-relative references such as an uploaded avatar.
		return u.Host == "" && len(u.Path) > 1 && u.Path[0] == '/' && u.Path[1] != '/'
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// AddTopFriend appends id unless it is already present, evicting the oldest entries
// beyond TopFriendsCap. The input slice is not modified.
func AddTopFriend(friends []int64, id int64) []int64 {
	if slices.Contains(friends, id) {
		return slices.Clone(friends)
	}

	next := append(slices.Clone(friends), id)
	if over := len(next) - TopFriendsCap; over > 0 {
		next = next[over:]
	}
	return next
}

// RemoveTopFriend returns friends without id, preserving order.
func RemoveTopFriend(friends []int64, id int64) []int64 {
	return removeID(friends, id)
}

// Block adds id to the block list if absent.
func Block(blocked []int64, id int64) []int64 {
	if slices.Contains(blocked, id) {
		return slices.Clone(blocked)
	}
	return append(slices.Clone(blocked), id)
}

// Unblock removes id from the block list.
func Unblock(blocked []int64, id int64) []int64 {
	return removeID(blocked, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// FeaturedIndex picks the featured user for day out of n users ordered by id.
// The seed is year + month + day of the UTC date. It returns -1 when n is 0.
func FeaturedIndex(day time.Time, n int) int {
	if n <= 0 {
		return -1
	}

	y, m, d := day.UTC().Date()
	seed := y + int(m) + d
	return seed % n
}
