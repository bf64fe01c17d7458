package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"punkspace/internal/pkg/errs"
)

func TestAddTopFriendCapsAndEvictsOldest(t *testing.T) {
	var friends []int64
	for id := int64(1); id <= 9; id++ {
		friends = AddTopFriend(friends, id)
	}

	assert.Equal(t, []int64{2, 3, 4, 5, 6, 7, 8, 9}, friends)
	assert.Len(t, friends, TopFriendsCap)
}

func TestAddTopFriendIsIdempotent(t *testing.T) {
	friends := []int64{4, 7}
	assert.Equal(t, []int64{4, 7}, AddTopFriend(friends, 4))
}

func TestRemoveTopFriendKeepsOrder(t *testing.T) {
	friends := []int64{3, 1, 2}
	assert.Equal(t, []int64{3, 2}, RemoveTopFriend(friends, 1))
	assert.Equal(t, []int64{3, 1, 2}, friends, "input must not be modified")
	assert.Equal(t, []int64{3, 1, 2}, RemoveTopFriend(friends, 99))
}

func TestBlockAndUnblock(t *testing.T) {
	blocked := Block(nil, 5)
	blocked = Block(blocked, 5)
	assert.Equal(t, []int64{5}, blocked)
	assert.Empty(t, Unblock(blocked, 5))
}

func TestFeaturedIndex(t *testing.T) {
	day := time.Date(2024, time.March, 15, 23, 30, 0, 0, time.UTC)

	// 2024 + 3 + 15 = 2042
	assert.Equal(t, 2042%7, FeaturedIndex(day, 7))
	assert.Equal(t, -1, FeaturedIndex(day, 0))

	// Same UTC date regardless of the caller's zone.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.Equal(t, FeaturedIndex(day, 5), FeaturedIndex(day.In(tokyo), 5))
}

func TestValidateCredentials(t *testing.T) {
	assert.Nil(t, ValidateCredentials("sid_vicious", "pogo123"))
	assert.Equal(t, errs.ErrInvalidUsername, ValidateCredentials("a", "pogo123").Code)
	assert.Equal(t, errs.ErrInvalidUsername, ValidateCredentials("no spaces", "pogo123").Code)
	assert.Equal(t, errs.ErrInvalidPassword, ValidateCredentials("sid", "12345").Code)
}

func TestProfileValidate(t *testing.T) {
	ok := Profile{
		AvatarURL: "/uploads/AAAAAAAAAAAAAAAA.png",
		MediaURL:  "https://www.youtube.com/embed/xyz",
		Bio:       "oi oi oi",
	}
	assert.Nil(t, ok.Validate())

	for _, p := range []Profile{
		{MediaURL: "javascript:alert(1)"},
		{AvatarURL: "//evil.example/a.png"},
		{Bio: string(make([]byte, MaxBioLength+1))},
	} {
		cErr := p.Validate()
		if assert.NotNil(t, cErr) {
			assert.Equal(t, errs.ErrInvalidParams, cErr.Code)
		}
	}
}
