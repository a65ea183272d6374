package service

import (
	"context"
	"strings"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
)

// CommunityService 帖子/评论/点赞：通知扇出的非消息类事件源
// 不做信息流排序，也不做话题和@提取
type CommunityService struct {
	CommunityRepo       *repository.CommunityRepository
	UserRepo            *repository.UserRepository
	Storage             *StorageService
	NotificationService *NotificationService
}

func NewCommunityService(
	communityRepo *repository.CommunityRepository,
	userRepo *repository.UserRepository,
	storage *StorageService,
	notificationService *NotificationService,
) *CommunityService {
	return &CommunityService{
		CommunityRepo:       communityRepo,
		UserRepo:            userRepo,
		Storage:             storage,
		NotificationService: notificationService,
	}
}

func (s *CommunityService) CreatePost(ctx context.Context, authorID uint, content string, image *AttachmentUpload) (*model.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" && image == nil {
		return nil, util.ErrEmptyMessage
	}

	post := &model.Post{
		AuthorID: authorID,
		Content:  content,
	}
	if image != nil {
		stored, err := s.Storage.Store(ctx, "posts", authorID, image.Filename, image.Reader, image.Size, image.ContentType)
		if err != nil {
			return nil, err
		}
		post.ImageURL = stored.URL
	}

	if err := s.CommunityRepo.CreatePost(post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *CommunityService) GetPost(postID string) (*model.Post, error) {
	return s.CommunityRepo.GetPost(postID)
}

// DeletePost 仅作者可删，连带评论和点赞
func (s *CommunityService) DeletePost(postID string, userID uint) error {
	post, err := s.CommunityRepo.GetPost(postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return util.ErrUnauthorized
	}
	return s.CommunityRepo.DeletePost(postID)
}

// Comment 评论落库后给帖子作者扇出 comment 通知
func (s *CommunityService) Comment(postID string, authorID uint, content string, parentID *string) (*model.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyMessage
	}

	post, err := s.CommunityRepo.GetPost(postID)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
		ParentID: parentID,
	}
	if err := s.CommunityRepo.CreateComment(comment); err != nil {
		return nil, err
	}

	if s.NotificationService != nil {
		go s.NotificationService.Fanout(FanoutEvent{
			Type:       model.NotifyComment,
			ActorID:    authorID,
			Recipients: []uint{post.AuthorID},
			Subject:    model.PostSubject(postID),
		})
	}
	return comment, nil
}

func (s *CommunityService) ListComments(postID string, limit, offset int) ([]model.Comment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.CommunityRepo.ListComments(postID, limit, offset)
}

// React 同一用户对同一帖子只保留一条反应，换类型是覆盖
func (s *CommunityService) React(postID string, userID uint, kind model.ReactionKind) error {
	post, err := s.CommunityRepo.GetPost(postID)
	if err != nil {
		return err
	}

	if err := s.CommunityRepo.UpsertReaction(&model.Reaction{
		UserID: userID,
		PostID: postID,
		Kind:   kind,
	}); err != nil {
		return err
	}

	if s.NotificationService != nil {
		go s.NotificationService.Fanout(FanoutEvent{
			Type:       model.NotifyLike,
			ActorID:    userID,
			Recipients: []uint{post.AuthorID},
			Subject:    model.PostSubject(postID),
		})
	}
	return nil
}

// Unreact 不存在时静默成功
func (s *CommunityService) Unreact(postID string, userID uint) error {
	_, err := s.CommunityRepo.DeleteReaction(userID, postID)
	return err
}
