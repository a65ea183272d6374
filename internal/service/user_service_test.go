package service

import (
	"testing"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserModel_MigratesAndStampsLastSeen(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	// last_seen 由 gorm 在插入时赋值，不依赖数据库方言的列默认值
	var stored model.User
	require.NoError(t, env.DB.First(&stored, alice.ID).Error)
	assert.False(t, stored.LastSeen.IsZero())
	assert.WithinDuration(t, time.Now(), stored.LastSeen, 5*time.Second)
}

func TestTouchLastSeen(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	var before model.User
	require.NoError(t, env.DB.First(&before, alice.ID).Error)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, env.User.TouchLastSeen(alice.ID))

	var after model.User
	require.NoError(t, env.DB.First(&after, alice.ID).Error)
	assert.True(t, after.LastSeen.After(before.LastSeen))
}

func TestGetProfile_BlockedLooksLikeMissing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	profile, err := env.User.GetProfile(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, profile.ID)

	require.NoError(t, env.Relationship.Block(bob.ID, alice.ID))

	// 双向都看不见对方
	_, err = env.User.GetProfile(alice.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)
	_, err = env.User.GetProfile(bob.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	// 自己永远能看到自己
	profile, err = env.User.GetProfile(bob.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, profile.ID)
}

func TestUpdateProfile_PrivacyValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	privacy := "private"
	bio := "hello"
	updated, err := env.User.UpdateProfile(alice.ID, ProfileUpdate{Privacy: &privacy, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, model.PrivacyPrivate, updated.Privacy)
	assert.Equal(t, "hello", updated.Bio)

	bad := "friends-only"
	_, err = env.User.UpdateProfile(alice.ID, ProfileUpdate{Privacy: &bad})
	assert.ErrorIs(t, err, util.ErrInvalidOperation)
}
