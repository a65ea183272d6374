package service

import (
	"context"
	"testing"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateDirect_Dedup(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	first, err := env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConversationDirect, first.Type)
	assert.Len(t, first.Participants, 2)

	// 参数顺序颠倒也命中同一个会话
	second, err := env.Conversation.FindOrCreateDirect(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, env.DB.Model(&model.Conversation{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFindOrCreateDirect_SelfAndBlocked(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	_, err := env.Conversation.FindOrCreateDirect(alice.ID, alice.ID)
	assert.ErrorIs(t, err, util.ErrSelfReference)

	require.NoError(t, env.Relationship.Block(bob.ID, alice.ID))
	_, err = env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrBlocked)
}

func TestCreateGroup(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	// 重复ID和创建者自己都会被剔除
	conv, err := env.Conversation.CreateGroup(alice.ID, "weekend", []uint{bob.ID, bob.ID, carol.ID, alice.ID})
	require.NoError(t, err)
	assert.Equal(t, model.ConversationGroup, conv.Type)
	assert.Len(t, conv.Participants, 3)

	creator, err := env.Conversations.GetParticipant(conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, creator.Role)

	// 创建即带一条系统消息并盖上最近消息时间
	var msgs []model.Message
	require.NoError(t, env.DB.Where("conversation_id = ?", conv.ID).Find(&msgs).Error)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.MessageSystem, msgs[0].Type)
	assert.Nil(t, msgs[0].SenderID)
	assert.NotNil(t, conv.LastMessageAt)
}

func TestCreateGroup_Empty(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	_, err := env.Conversation.CreateGroup(alice.ID, "just me", []uint{alice.ID})
	assert.ErrorIs(t, err, util.ErrEmptyGroup)

	_, err = env.Conversation.CreateGroup(alice.ID, "nobody", nil)
	assert.ErrorIs(t, err, util.ErrEmptyGroup)
}

func TestLeaveConversation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	conv, err := env.Conversation.CreateGroup(alice.ID, "g", []uint{bob.ID, carol.ID})
	require.NoError(t, err)

	require.NoError(t, env.Conversation.LeaveConversation(bob.ID, conv.ID))

	p, err := env.Conversations.GetParticipant(conv.ID, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, p.LeftAt)

	// 退出者不再有读写权限
	_, err = env.Conversation.GetConversation(bob.ID, conv.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	// 再次退出同样拒绝
	err = env.Conversation.LeaveConversation(bob.ID, conv.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	// 创建消息 + 退出消息
	var msgCount int64
	require.NoError(t, env.DB.Model(&model.Message{}).
		Where("conversation_id = ? AND type = ?", conv.ID, model.MessageSystem).
		Count(&msgCount).Error)
	assert.EqualValues(t, 2, msgCount)
}

func TestLeaveConversation_DirectRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	conv, err := env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	err = env.Conversation.LeaveConversation(alice.ID, conv.ID)
	assert.ErrorIs(t, err, util.ErrInvalidOperation)
}

func TestInviteParticipant(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	conv, err := env.Conversation.CreateGroup(alice.ID, "g", []uint{bob.ID})
	require.NoError(t, err)

	// 普通成员无权邀请
	err = env.Conversation.InviteParticipant(bob.ID, conv.ID, carol.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	require.NoError(t, env.Conversation.InviteParticipant(alice.ID, conv.ID, carol.ID))
	p, err := env.Conversations.GetActiveParticipant(conv.ID, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, p.Role)

	// 已在会中不可重复邀请
	err = env.Conversation.InviteParticipant(alice.ID, conv.ID, carol.ID)
	assert.ErrorIs(t, err, util.ErrInvalidOperation)
}

func TestInviteParticipant_RejoinsDeparted(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	conv, err := env.Conversation.CreateGroup(alice.ID, "g", []uint{bob.ID, carol.ID})
	require.NoError(t, err)

	require.NoError(t, env.Conversation.LeaveConversation(bob.ID, conv.ID))
	require.NoError(t, env.Conversation.InviteParticipant(alice.ID, conv.ID, bob.ID))

	p, err := env.Conversations.GetActiveParticipant(conv.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, p.LeftAt)

	// 仍然只有一条成员记录
	var count int64
	require.NoError(t, env.DB.Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conv.ID, bob.ID).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestInviteParticipant_DirectRejected(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	conv, err := env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	err = env.Conversation.InviteParticipant(alice.ID, conv.ID, carol.ID)
	assert.ErrorIs(t, err, util.ErrInvalidOperation)
}

func TestToggleMute(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	conv, err := env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)

	muted, err := env.Conversation.ToggleMute(alice.ID, conv.ID)
	require.NoError(t, err)
	assert.True(t, muted)

	muted, err = env.Conversation.ToggleMute(alice.ID, conv.ID)
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestListConversations_OrderAndUnread(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	carol := env.createUser(t, "carol", model.PrivacyPublic)

	withBob, err := env.Conversation.FindOrCreateDirect(alice.ID, bob.ID)
	require.NoError(t, err)
	withCarol, err := env.Conversation.FindOrCreateDirect(alice.ID, carol.ID)
	require.NoError(t, err)

	_, err = env.Message.Append(context.Background(), withBob.ID, bob.ID, "hi alice", nil, nil)
	require.NoError(t, err)
	_, err = env.Message.Append(context.Background(), withCarol.ID, carol.ID, "hello", nil, nil)
	require.NoError(t, err)
	_, err = env.Message.Append(context.Background(), withCarol.ID, carol.ID, "you there?", nil, nil)
	require.NoError(t, err)

	list, total, err := env.Conversation.ListConversations(alice.ID, 20, 0, env.Unread)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)

	// carol 的会话消息更新，排在前面
	assert.Equal(t, withCarol.ID, list[0].ID)
	assert.EqualValues(t, 2, list[0].UnreadCount)
	assert.EqualValues(t, 1, list[1].UnreadCount)
}
