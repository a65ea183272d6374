package service

import (
	"errors"
	"time"

	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
)

// UnreadService 未读数 = 已读游标之后他人发出的消息数
// 游标是粗粒度高水位：只前进不后退，删除消息不回调游标
type UnreadService struct {
	ConvRepo    *repository.ConversationRepository
	MessageRepo *repository.MessageRepository
}

func NewUnreadService(convRepo *repository.ConversationRepository, messageRepo *repository.MessageRepository) *UnreadService {
	return &UnreadService{
		ConvRepo:    convRepo,
		MessageRepo: messageRepo,
	}
}

// ComputeUnreadCount 非活跃成员恒为 0，不报错
func (s *UnreadService) ComputeUnreadCount(userID uint, convID string) (int64, error) {
	p, err := s.ConvRepo.GetParticipant(convID, userID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if !p.Active() {
		return 0, nil
	}

	if cached, err := s.MessageRepo.CachedUnread(userID, convID); err == nil && cached >= 0 {
		return cached, nil
	}

	count, err := s.MessageRepo.CountUnread(convID, userID, p.LastReadAt)
	if err != nil {
		return 0, err
	}
	s.MessageRepo.SetCachedUnread(userID, convID, count)
	return count, nil
}

// MarkRead 把已读游标推到当前时刻
func (s *UnreadService) MarkRead(userID uint, convID string) error {
	if _, err := s.ConvRepo.GetActiveParticipant(convID, userID); err != nil {
		return err
	}

	if err := s.ConvRepo.AdvanceReadCursor(convID, userID, time.Now()); err != nil {
		return err
	}
	s.MessageRepo.InvalidateUnread(convID, userID)
	return nil
}
