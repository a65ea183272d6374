package service

import (
	"context"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
)

// UserService 用户资料读取与更新，注册/登录不在本服务范围内
type UserService struct {
	UserRepo     *repository.UserRepository
	RelationRepo *repository.RelationshipRepository
	Storage      *StorageService
}

func NewUserService(userRepo *repository.UserRepository, relationRepo *repository.RelationshipRepository, storage *StorageService) *UserService {
	return &UserService{
		UserRepo:     userRepo,
		RelationRepo: relationRepo,
		Storage:      storage,
	}
}

// GetProfile 被任一方向拉黑时对外表现为用户不存在
func (s *UserService) GetProfile(viewerID, targetID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(targetID)
	if err != nil {
		return nil, err
	}

	if viewerID != targetID {
		blocked, err := s.RelationRepo.IsBlockedBetween(viewerID, targetID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, util.ErrNotFound
		}
	}
	return user, nil
}

type ProfileUpdate struct {
	Name    *string `json:"name"`
	Bio     *string `json:"bio"`
	Privacy *string `json:"privacy"`
}

func (s *UserService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	updates := map[string]interface{}{}
	if update.Name != nil && *update.Name != "" {
		updates["name"] = *update.Name
	}
	if update.Bio != nil {
		updates["bio"] = *update.Bio
	}
	if update.Privacy != nil {
		switch model.UserPrivacy(*update.Privacy) {
		case model.PrivacyPublic, model.PrivacyPrivate:
			updates["privacy"] = *update.Privacy
		default:
			return nil, util.ErrInvalidOperation
		}
	}

	if len(updates) > 0 {
		if err := s.UserRepo.UpdateProfile(userID, updates); err != nil {
			return nil, err
		}
	}
	return s.UserRepo.FindByID(userID)
}

// UploadAvatar 头像走存储子系统的 avatars 命名空间
func (s *UserService) UploadAvatar(ctx context.Context, userID uint, up AttachmentUpload) (string, error) {
	stored, err := s.Storage.Store(ctx, "avatars", userID, up.Filename, up.Reader, up.Size, up.ContentType)
	if err != nil {
		return "", err
	}
	if err := s.UserRepo.UpdateProfile(userID, map[string]interface{}{"avatar": stored.URL}); err != nil {
		return "", err
	}
	return stored.URL, nil
}

func (s *UserService) Search(query string, limit int) ([]model.User, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.UserRepo.Search(query, limit)
}

func (s *UserService) TouchLastSeen(userID uint) error {
	return s.UserRepo.UpdateLastSeen(userID)
}
