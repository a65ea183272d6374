package service

import (
	"testing"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollow_PublicTargetAccepted(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	result, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowAccepted, result.Status)

	following, err := env.Relationship.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestFollow_PrivateTargetPending(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPrivate)

	result, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, result.Status)

	// 待确认状态不计入已关注
	following, err := env.Relationship.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)
}

func TestFollow_Self(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	_, err := env.Relationship.Follow(alice.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrSelfReference)
}

func TestFollow_DuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPrivate)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.Relationship.Follow(alice.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrAlreadyFollowing)

	_, err = env.Relationship.Follow(alice.ID, carol.ID)
	require.NoError(t, err)
	_, err = env.Relationship.Follow(alice.ID, carol.ID)
	assert.ErrorIs(t, err, util.ErrRequestPending)
}

func TestFollow_UnknownTarget(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	_, err := env.Relationship.Follow(alice.ID, 9999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestAcceptFollowRequest(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPrivate)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, env.Relationship.AcceptFollowRequest(bob.ID, alice.ID))

	following, err := env.Relationship.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	// 再次同意：请求已不存在
	err = env.Relationship.AcceptFollowRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrNoPendingRequest)
}

func TestRejectFollowRequest_ThenRefollow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPrivate)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.Relationship.RejectFollowRequest(bob.ID, alice.ID))

	// 拒绝后可以重新发起，回到待确认
	result, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowPending, result.Status)
}

func TestUnfollow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.Relationship.Unfollow(alice.ID, bob.ID))

	err = env.Relationship.Unfollow(alice.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrNotFollowing)
}

func TestBlock_SeversBothDirections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = env.Relationship.Follow(bob.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))

	aFollowsB, err := env.Relationship.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, aFollowsB)
	bFollowsA, err := env.Relationship.IsFollowing(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, bFollowsA)

	var followCount int64
	require.NoError(t, env.DB.Model(&model.Follow{}).Count(&followCount).Error)
	assert.Zero(t, followCount)
}

func TestBlock_PreventsFollowEitherDirection(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrBlocked)
	_, err = env.Relationship.Follow(bob.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrBlocked)
}

func TestBlock_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))
	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))

	var blockCount int64
	require.NoError(t, env.DB.Model(&model.Block{}).Count(&blockCount).Error)
	assert.EqualValues(t, 1, blockCount)
}

func TestUnblock_DoesNotRestoreFollows(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	_, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))
	require.NoError(t, env.Relationship.Unblock(alice.ID, bob.ID))

	following, err := env.Relationship.IsFollowing(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, following)

	// 解除后可以重新关注
	result, err := env.Relationship.Follow(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FollowAccepted, result.Status)
}

func TestUnblock_AbsentIsNoop(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	assert.NoError(t, env.Relationship.Unblock(alice.ID, bob.ID))
}

func TestBlock_OnlyBlockerSideRemoved(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))
	require.NoError(t, env.Relationship.Block(bob.ID, alice.ID))

	// alice 解除拉黑后 bob 的那条仍然生效
	require.NoError(t, env.Relationship.Unblock(alice.ID, bob.ID))
	blocked, err := env.Relationship.IsBlocked(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestMute_PermanentAndExpiring(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Mute(alice.ID, bob.ID, nil))
	muted, err := env.Relationship.IsMutedActive(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, muted)

	hours := 24
	require.NoError(t, env.Relationship.Mute(alice.ID, carol.ID, &hours))
	muted, err = env.Relationship.IsMutedActive(alice.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, muted)
}

func TestMute_ExpiredIsInactive(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, env.DB.Create(&model.Mute{
		MuterID:   alice.ID,
		MutedID:   bob.ID,
		ExpiresAt: &past,
	}).Error)

	muted, err := env.Relationship.IsMutedActive(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, muted)

	mutes, err := env.Relationship.ActiveMutes(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, mutes)
}

func TestMute_UpsertExtends(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	hours := 1
	require.NoError(t, env.Relationship.Mute(alice.ID, bob.ID, &hours))
	// 再次设置改为永久，同一条记录被覆盖
	require.NoError(t, env.Relationship.Mute(alice.ID, bob.ID, nil))

	var count int64
	require.NoError(t, env.DB.Model(&model.Mute{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var m model.Mute
	require.NoError(t, env.DB.First(&m, "muter_id = ? AND muted_id = ?", alice.ID, bob.ID).Error)
	assert.Nil(t, m.ExpiresAt)
}

func TestUnmute(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Mute(alice.ID, bob.ID, nil))
	require.NoError(t, env.Relationship.Unmute(alice.ID, bob.ID))

	muted, err := env.Relationship.IsMutedActive(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, muted)

	// 不存在时静默成功
	assert.NoError(t, env.Relationship.Unmute(alice.ID, bob.ID))
}
