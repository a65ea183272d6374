package service

import (
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
	"socialhub_backend/pkg/logger"
	"socialhub_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// FanoutEvent 一次通知扇出的输入：动作者、事件类型、目标实体和候选收件人集合
type FanoutEvent struct {
	Type       model.NotificationType
	ActorID    uint
	Recipients []uint
	Subject    model.NotificationSubject
	Message    string
}

// NotificationService 负责通知的扇出与收件箱管理
// 扇出逐收件人做抑制判定：自己不收、拉黑双向不收、免打扰拦截社交类通知
type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	RelationRepo     *repository.RelationshipRepository
	Hub              *RealtimeHub
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	relationRepo *repository.RelationshipRepository,
	hub *RealtimeHub,
) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		RelationRepo:     relationRepo,
		Hub:              hub,
	}
}

// Fanout 对每个候选收件人独立判定，单个收件人失败不影响其他人
func (s *NotificationService) Fanout(event FanoutEvent) {
	now := time.Now()
	for _, recipientID := range event.Recipients {
		outcome := s.deliverOne(event, recipientID, now)
		monitoring.FanoutCounter.WithLabelValues(string(event.Type), outcome).Inc()
	}
}

func (s *NotificationService) deliverOne(event FanoutEvent, recipientID uint, now time.Time) string {
	if recipientID == event.ActorID {
		return "skipped_self"
	}

	// 拉黑对任何类型都生效，免打扰只拦截社交类
	blocked, err := s.RelationRepo.IsBlockedBetween(recipientID, event.ActorID)
	if err != nil {
		logger.Log.Error("Fanout block check failed",
			zap.Error(err), zap.Uint("recipientId", recipientID))
		return "error"
	}
	if blocked {
		return "suppressed_block"
	}

	if event.Type.MuteSuppressible() {
		muted, err := s.RelationRepo.IsMutedActive(recipientID, event.ActorID, now)
		if err != nil {
			logger.Log.Error("Fanout mute check failed",
				zap.Error(err), zap.Uint("recipientId", recipientID))
			return "error"
		}
		if muted {
			return "suppressed_mute"
		}
	}

	body := event.Message
	if body == "" {
		body = renderMessage(event.Type)
	}
	n := &model.Notification{
		UserID:      recipientID,
		ActorID:     event.ActorID,
		Type:        event.Type,
		SubjectKind: event.Subject.Kind,
		SubjectID:   event.Subject.ID,
		Message:     body,
	}
	if err := s.NotificationRepo.Create(n); err != nil {
		logger.Log.Error("Fanout persist failed",
			zap.Error(err), zap.Uint("recipientId", recipientID))
		return "error"
	}

	if s.Hub != nil {
		s.Hub.PushToUsers([]uint{recipientID}, Event{
			Type: "NOTIFICATION",
			Data: n,
		})
	}
	return "delivered"
}

// renderMessage 按类型生成默认文案，前端可用 subject 自行渲染富文本
func renderMessage(t model.NotificationType) string {
	switch t {
	case model.NotifyFollow:
		return "started following you"
	case model.NotifyFollowRequest:
		return "requested to follow you"
	case model.NotifyMessage:
		return "sent you a message"
	case model.NotifyMention:
		return "mentioned you"
	case model.NotifyComment:
		return "commented on your post"
	case model.NotifyLike:
		return "liked your post"
	case model.NotifyModeration:
		return "a moderation action was taken on your content"
	}
	return ""
}

func (s *NotificationService) List(userID uint, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.NotificationRepo.ListForUser(userID, unreadOnly, limit, offset)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.NotificationRepo.CountUnread(userID)
}

// MarkAsRead 区分"不存在"和"不属于你"：前者 404，后者 403
func (s *NotificationService) MarkAsRead(notificationID, userID uint) error {
	rows, err := s.NotificationRepo.MarkRead(notificationID, userID, time.Now())
	if err != nil {
		return err
	}
	if rows == 0 {
		// 行没动：已读(幂等成功)、不是本人的、或压根不存在
		owned, err := s.NotificationRepo.IsOwnedBy(notificationID, userID)
		if err != nil {
			return err
		}
		if owned {
			return nil
		}
		exists, err := s.NotificationRepo.Exists(notificationID)
		if err != nil {
			return err
		}
		if !exists {
			return util.ErrNotFound
		}
		return util.ErrUnauthorized
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uint) error {
	return s.NotificationRepo.MarkAllRead(userID, time.Now())
}

func (s *NotificationService) Delete(notificationID, userID uint) error {
	rows, err := s.NotificationRepo.Delete(notificationID, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, err := s.NotificationRepo.Exists(notificationID)
		if err != nil {
			return err
		}
		if !exists {
			return util.ErrNotFound
		}
		return util.ErrUnauthorized
	}
	return nil
}

func (s *NotificationService) ClearAll(userID uint) error {
	return s.NotificationRepo.ClearAll(userID)
}
