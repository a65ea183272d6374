package service

import (
	"errors"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
	"socialhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RelationshipService 关注/拉黑/免打扰三类社交边的业务入口
// 状态机：none→accepted(公开主页)、none→pending(私密主页)、pending→accepted(同意)、
// pending|accepted→none(取关/拒绝/任一方拉黑)
type RelationshipService struct {
	RelationRepo        *repository.RelationshipRepository
	UserRepo            *repository.UserRepository
	NotificationService *NotificationService
}

func NewRelationshipService(
	relationRepo *repository.RelationshipRepository,
	userRepo *repository.UserRepository,
	notificationService *NotificationService,
) *RelationshipService {
	return &RelationshipService{
		RelationRepo:        relationRepo,
		UserRepo:            userRepo,
		NotificationService: notificationService,
	}
}

// FollowResult 告知调用方这次关注落在了哪个状态
type FollowResult struct {
	Status model.FollowStatus `json:"status"`
}

func (s *RelationshipService) Follow(followerID, targetID uint) (*FollowResult, error) {
	if followerID == targetID {
		return nil, util.ErrSelfReference
	}

	target, err := s.UserRepo.FindByID(targetID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.RelationRepo.IsBlockedBetween(followerID, targetID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, util.ErrBlocked
	}

	if existing, err := s.RelationRepo.GetFollow(followerID, targetID); err == nil {
		return nil, followConflict(existing.Status)
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	status := model.FollowAccepted
	if target.IsPrivate() {
		status = model.FollowPending
	}

	f := &model.Follow{
		FollowerID:  followerID,
		FollowingID: targetID,
		Status:      status,
	}
	if err := s.RelationRepo.CreateFollow(f); err != nil {
		// 并发下撞唯一键：读当前状态按冲突返回
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, gerr := s.RelationRepo.GetFollow(followerID, targetID); gerr == nil {
				return nil, followConflict(existing.Status)
			}
		}
		return nil, err
	}

	if s.NotificationService != nil {
		notifyType := model.NotifyFollow
		if status == model.FollowPending {
			notifyType = model.NotifyFollowRequest
		}
		go s.NotificationService.Fanout(FanoutEvent{
			Type:       notifyType,
			ActorID:    followerID,
			Recipients: []uint{targetID},
			Subject:    model.UserSubject(followerID),
		})
	}

	return &FollowResult{Status: status}, nil
}

func followConflict(status model.FollowStatus) error {
	if status == model.FollowPending {
		return util.ErrRequestPending
	}
	return util.ErrAlreadyFollowing
}

// AcceptFollowRequest target 同意 follower 的关注请求
func (s *RelationshipService) AcceptFollowRequest(targetID, followerID uint) error {
	f, err := s.RelationRepo.GetFollow(followerID, targetID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrNoPendingRequest
		}
		return err
	}
	if f.Status != model.FollowPending {
		return util.ErrNoPendingRequest
	}

	if err := s.RelationRepo.UpdateFollowStatus(followerID, targetID, model.FollowAccepted); err != nil {
		return err
	}

	if s.NotificationService != nil {
		go s.NotificationService.Fanout(FanoutEvent{
			Type:       model.NotifyFollow,
			ActorID:    targetID,
			Recipients: []uint{followerID},
			Subject:    model.UserSubject(targetID),
			Message:    "accepted your follow request",
		})
	}
	return nil
}

func (s *RelationshipService) RejectFollowRequest(targetID, followerID uint) error {
	f, err := s.RelationRepo.GetFollow(followerID, targetID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return util.ErrNoPendingRequest
		}
		return err
	}
	if f.Status != model.FollowPending {
		return util.ErrNoPendingRequest
	}

	_, err = s.RelationRepo.DeleteFollow(followerID, targetID)
	return err
}

// Unfollow 同时覆盖已接受和仍在等待中的边
func (s *RelationshipService) Unfollow(followerID, targetID uint) error {
	rows, err := s.RelationRepo.DeleteFollow(followerID, targetID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return util.ErrNotFollowing
	}
	return nil
}

// Block 拉黑并在同一事务里斩断双向关注边，重复拉黑幂等
func (s *RelationshipService) Block(blockerID, targetID uint) error {
	if blockerID == targetID {
		return util.ErrSelfReference
	}

	if _, err := s.UserRepo.FindByID(targetID); err != nil {
		return err
	}

	b := &model.Block{
		BlockerID: blockerID,
		BlockedID: targetID,
	}
	if err := s.RelationRepo.CreateBlockAndSever(b); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}

	logger.Log.Info("User blocked",
		zap.Uint("blockerId", blockerID), zap.Uint("targetId", targetID))
	return nil
}

// Unblock 只删自己方向的拉黑边，之前的关注不会恢复，不存在时静默成功
func (s *RelationshipService) Unblock(blockerID, targetID uint) error {
	_, err := s.RelationRepo.DeleteBlock(blockerID, targetID)
	return err
}

// Mute durationHours 为 nil 表示永久，免打扰与关注/拉黑互不影响
func (s *RelationshipService) Mute(muterID, targetID uint, durationHours *int) error {
	if muterID == targetID {
		return util.ErrSelfReference
	}

	if _, err := s.UserRepo.FindByID(targetID); err != nil {
		return err
	}

	var expiresAt *time.Time
	if durationHours != nil {
		t := time.Now().Add(time.Duration(*durationHours) * time.Hour)
		expiresAt = &t
	}

	return s.RelationRepo.UpsertMute(&model.Mute{
		MuterID:   muterID,
		MutedID:   targetID,
		ExpiresAt: expiresAt,
	})
}

func (s *RelationshipService) Unmute(muterID, targetID uint) error {
	_, err := s.RelationRepo.DeleteMute(muterID, targetID)
	return err
}

// FollowStatus 返回 viewer 对 target 的当前关注状态，无边时返回空串
func (s *RelationshipService) FollowStatus(viewerID, targetID uint) (model.FollowStatus, error) {
	f, err := s.RelationRepo.GetFollow(viewerID, targetID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return f.Status, nil
}

func (s *RelationshipService) IsFollowing(followerID, targetID uint) (bool, error) {
	return s.RelationRepo.IsFollowing(followerID, targetID)
}

func (s *RelationshipService) IsBlocked(userA, userB uint) (bool, error) {
	return s.RelationRepo.IsBlockedBetween(userA, userB)
}

func (s *RelationshipService) IsMutedActive(muterID, mutedID uint) (bool, error) {
	return s.RelationRepo.IsMutedActive(muterID, mutedID, time.Now())
}

func (s *RelationshipService) Followers(userID uint) ([]model.User, error) {
	return s.RelationRepo.Followers(userID)
}

func (s *RelationshipService) Following(userID uint) ([]model.User, error) {
	return s.RelationRepo.Following(userID)
}

func (s *RelationshipService) PendingRequests(userID uint) ([]model.Follow, error) {
	return s.RelationRepo.PendingRequests(userID)
}

func (s *RelationshipService) BlockedUsers(userID uint) ([]model.User, error) {
	return s.RelationRepo.BlockedUsers(userID)
}

func (s *RelationshipService) ActiveMutes(userID uint) ([]model.Mute, error) {
	return s.RelationRepo.ActiveMutes(userID, time.Now())
}
