package service

import (
	"testing"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout_DeliversAndSkipsSelf(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	env.Notification.Fanout(FanoutEvent{
		Type:       model.NotifyLike,
		ActorID:    alice.ID,
		Recipients: []uint{alice.ID, bob.ID, carol.ID},
		Subject:    model.PostSubject("post-1"),
	})

	var rows []model.Notification
	require.NoError(t, env.DB.Order("user_id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, bob.ID, rows[0].UserID)
	assert.Equal(t, carol.ID, rows[1].UserID)
	assert.Equal(t, alice.ID, rows[0].ActorID)
	assert.Equal(t, model.SubjectPost, rows[0].SubjectKind)
	assert.Equal(t, "post-1", rows[0].SubjectID)
	assert.NotEmpty(t, rows[0].Message)
}

func TestFanout_BlockSuppresses(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	// 收件人拉黑了动作者
	require.NoError(t, env.Relationship.Block(bob.ID, alice.ID))

	env.Notification.Fanout(FanoutEvent{
		Type:       model.NotifyLike,
		ActorID:    alice.ID,
		Recipients: []uint{bob.ID},
		Subject:    model.PostSubject("post-1"),
	})

	var count int64
	require.NoError(t, env.DB.Model(&model.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFanout_BlockSuppressesReverseDirection(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	// 动作者拉黑了收件人，同样不投递
	require.NoError(t, env.Relationship.Block(alice.ID, bob.ID))

	env.Notification.Fanout(FanoutEvent{
		Type:       model.NotifyComment,
		ActorID:    alice.ID,
		Recipients: []uint{bob.ID},
		Subject:    model.PostSubject("post-1"),
	})

	var count int64
	require.NoError(t, env.DB.Model(&model.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFanout_MuteSuppressesSocialTypes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Mute(bob.ID, alice.ID, nil))

	for _, typ := range []model.NotificationType{
		model.NotifyMessage, model.NotifyMention, model.NotifyComment,
		model.NotifyLike, model.NotifyFollow, model.NotifyFollowRequest,
	} {
		env.Notification.Fanout(FanoutEvent{
			Type:       typ,
			ActorID:    alice.ID,
			Recipients: []uint{bob.ID},
			Subject:    model.UserSubject(alice.ID),
		})
	}

	var count int64
	require.NoError(t, env.DB.Model(&model.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFanout_ModerationIgnoresMute(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Mute(bob.ID, alice.ID, nil))

	env.Notification.Fanout(FanoutEvent{
		Type:       model.NotifyModeration,
		ActorID:    alice.ID,
		Recipients: []uint{bob.ID},
		Subject:    model.PostSubject("post-1"),
		Message:    "your post was removed",
	})

	var rows []model.Notification
	require.NoError(t, env.DB.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, model.NotifyModeration, rows[0].Type)
	assert.Equal(t, "your post was removed", rows[0].Message)
}

func TestFanout_BlockSuppressesEveryType(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	require.NoError(t, env.Relationship.Block(bob.ID, alice.ID))

	// 拉黑无条件抑制，连平台治理类也不例外
	for _, typ := range []model.NotificationType{
		model.NotifyMessage, model.NotifyMention, model.NotifyComment,
		model.NotifyLike, model.NotifyFollow, model.NotifyFollowRequest,
		model.NotifyModeration,
	} {
		env.Notification.Fanout(FanoutEvent{
			Type:       typ,
			ActorID:    alice.ID,
			Recipients: []uint{bob.ID},
			Subject:    model.PostSubject("post-1"),
		})
	}

	var count int64
	require.NoError(t, env.DB.Model(&model.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFanout_ExpiredMuteDelivers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	hours := -1 // 已过期
	require.NoError(t, env.Relationship.Mute(bob.ID, alice.ID, &hours))

	env.Notification.Fanout(FanoutEvent{
		Type:       model.NotifyLike,
		ActorID:    alice.ID,
		Recipients: []uint{bob.ID},
		Subject:    model.PostSubject("post-1"),
	})

	var count int64
	require.NoError(t, env.DB.Model(&model.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func seedNotification(t *testing.T, env *testEnv, userID, actorID uint) *model.Notification {
	t.Helper()
	n := &model.Notification{
		UserID:      userID,
		ActorID:     actorID,
		Type:        model.NotifyLike,
		SubjectKind: model.SubjectPost,
		SubjectID:   "post-1",
		Message:     "liked your post",
	}
	require.NoError(t, env.DB.Create(n).Error)
	return n
}

func TestMarkAsRead_Ownership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	n := seedNotification(t, env, bob.ID, alice.ID)

	// 不是本人的通知
	err := env.Notification.MarkAsRead(n.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	// 不存在的通知
	err = env.Notification.MarkAsRead(99999, bob.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	require.NoError(t, env.Notification.MarkAsRead(n.ID, bob.ID))

	var reloaded model.Notification
	require.NoError(t, env.DB.First(&reloaded, n.ID).Error)
	assert.NotNil(t, reloaded.ReadAt)

	// 重复标记幂等
	assert.NoError(t, env.Notification.MarkAsRead(n.ID, bob.ID))
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	seedNotification(t, env, bob.ID, alice.ID)
	seedNotification(t, env, bob.ID, alice.ID)
	seedNotification(t, env, alice.ID, bob.ID)

	count, err := env.Notification.UnreadCount(bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, env.Notification.MarkAllRead(bob.ID))

	count, err = env.Notification.UnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// 别人的不受影响
	count, err = env.Notification.UnreadCount(alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestNotificationDeleteAndClear(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	n := seedNotification(t, env, bob.ID, alice.ID)
	seedNotification(t, env, bob.ID, alice.ID)

	// 不是本人的删除被拒
	err := env.Notification.Delete(n.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	require.NoError(t, env.Notification.Delete(n.ID, bob.ID))
	err = env.Notification.Delete(n.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	require.NoError(t, env.Notification.ClearAll(bob.ID))
	items, total, err := env.Notification.List(bob.ID, false, 20, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

func TestNotificationList_UnreadFilter(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	first := seedNotification(t, env, bob.ID, alice.ID)
	seedNotification(t, env, bob.ID, alice.ID)
	require.NoError(t, env.Notification.MarkAsRead(first.ID, bob.ID))

	items, total, err := env.Notification.List(bob.ID, true, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ReadAt)
}
