package service

import (
	"bytes"
	"context"
	"testing"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	ctx := context.Background()

	post, err := env.CommunitySvc.CreatePost(ctx, alice.ID, "hello world", nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, post.AuthorID)
	assert.Equal(t, "hello world", post.Content)
	assert.NotEmpty(t, post.ID)

	_, err = env.CommunitySvc.CreatePost(ctx, alice.ID, "   ", nil)
	assert.ErrorIs(t, err, util.ErrEmptyMessage)
}

func TestCreatePost_WithImage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)

	img := []byte("fake-png-bytes")
	post, err := env.CommunitySvc.CreatePost(context.Background(), alice.ID, "", &AttachmentUpload{
		Filename:    "photo.png",
		Reader:      bytes.NewReader(img),
		Size:        int64(len(img)),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, post.ImageURL)
}

func TestDeletePost_AuthorOnlyAndCascade(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	ctx := context.Background()

	post, err := env.CommunitySvc.CreatePost(ctx, alice.ID, "to be removed", nil)
	require.NoError(t, err)
	_, err = env.CommunitySvc.Comment(post.ID, bob.ID, "nice", nil)
	require.NoError(t, err)
	require.NoError(t, env.CommunitySvc.React(post.ID, bob.ID, model.ReactionLike))

	err = env.CommunitySvc.DeletePost(post.ID, bob.ID)
	assert.ErrorIs(t, err, util.ErrUnauthorized)

	require.NoError(t, env.CommunitySvc.DeletePost(post.ID, alice.ID))
	_, err = env.CommunitySvc.GetPost(post.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	var comments, reactions int64
	require.NoError(t, env.DB.Model(&model.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	require.NoError(t, env.DB.Model(&model.Reaction{}).Where("post_id = ?", post.ID).Count(&reactions).Error)
	assert.Zero(t, comments)
	assert.Zero(t, reactions)
}

func TestComment_ThreadAndValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)
	ctx := context.Background()

	post, err := env.CommunitySvc.CreatePost(ctx, alice.ID, "discuss", nil)
	require.NoError(t, err)

	root, err := env.CommunitySvc.Comment(post.ID, bob.ID, "first", nil)
	require.NoError(t, err)
	reply, err := env.CommunitySvc.Comment(post.ID, alice.ID, "second", &root.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	_, err = env.CommunitySvc.Comment(post.ID, bob.ID, "  ", nil)
	assert.ErrorIs(t, err, util.ErrEmptyMessage)
	_, err = env.CommunitySvc.Comment("missing-post", bob.ID, "hi", nil)
	assert.ErrorIs(t, err, util.ErrNotFound)

	items, total, err := env.CommunitySvc.ListComments(post.ID, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}

func TestReact_UpsertSingleRow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice", model.PrivacyPublic)
	bob := env.createUser(t, "bob", model.PrivacyPublic)

	post, err := env.CommunitySvc.CreatePost(context.Background(), alice.ID, "react here", nil)
	require.NoError(t, err)

	require.NoError(t, env.CommunitySvc.React(post.ID, bob.ID, model.ReactionLike))
	require.NoError(t, env.CommunitySvc.React(post.ID, bob.ID, model.ReactionLove))

	var rows []model.Reaction
	require.NoError(t, env.DB.Where("post_id = ?", post.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ReactionLove, rows[0].Kind)

	require.NoError(t, env.CommunitySvc.Unreact(post.ID, bob.ID))
	// 再次取消是静默成功
	require.NoError(t, env.CommunitySvc.Unreact(post.ID, bob.ID))
	var count int64
	require.NoError(t, env.DB.Model(&model.Reaction{}).Where("post_id = ?", post.ID).Count(&count).Error)
	assert.Zero(t, count)
}
