package service

import (
	"context"
	"io"
	"strings"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
	"socialhub_backend/pkg/logger"
	"socialhub_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AttachmentUpload 待上传的附件输入，由控制器从 multipart 解出
type AttachmentUpload struct {
	Filename    string
	Reader      io.Reader
	Size        int64
	ContentType string
}

// MessageService 消息追加/编辑/删除
// 附件先同步走存储子系统，任一失败整次追加失败；
// 消息行、附件行、会话 last_message_at 在同一事务提交，
// 推送和通知在提交后进行，失败不回滚
type MessageService struct {
	DB                  *gorm.DB
	MessageRepo         *repository.MessageRepository
	ConvRepo            *repository.ConversationRepository
	Storage             *StorageService
	Hub                 *RealtimeHub
	NotificationService *NotificationService
}

func NewMessageService(
	db *gorm.DB,
	messageRepo *repository.MessageRepository,
	convRepo *repository.ConversationRepository,
	storage *StorageService,
	hub *RealtimeHub,
	notificationService *NotificationService,
) *MessageService {
	return &MessageService{
		DB:                  db,
		MessageRepo:         messageRepo,
		ConvRepo:            convRepo,
		Storage:             storage,
		Hub:                 hub,
		NotificationService: notificationService,
	}
}

// Append 内容与附件至少其一；replyTo 必须指向同会话消息
func (s *MessageService) Append(ctx context.Context, convID string, senderID uint, content string, replyToID *string, uploads []AttachmentUpload) (*model.Message, error) {
	if _, err := s.ConvRepo.GetActiveParticipant(convID, senderID); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" && len(uploads) == 0 {
		return nil, util.ErrEmptyMessage
	}

	if replyToID != nil {
		target, err := s.MessageRepo.GetByID(*replyToID)
		if err != nil || target.ConversationID != convID {
			return nil, util.ErrBadReplyTo
		}
	}

	// 附件先落存储，失败则整体放弃
	var attachments []model.MessageAttachment
	for _, up := range uploads {
		stored, err := s.Storage.Store(ctx, "messages", senderID, up.Filename, up.Reader, up.Size, up.ContentType)
		if err != nil {
			logger.Log.Error("Attachment upload failed",
				zap.Error(err), zap.String("filename", up.Filename))
			return nil, err
		}
		attachments = append(attachments, model.MessageAttachment{
			FilePath: stored.Path,
			FileURL:  stored.URL,
			MimeType: stored.MimeType,
			Size:     stored.Size,
		})
	}

	msg := &model.Message{
		ConversationID: convID,
		SenderID:       &senderID,
		Type:           deriveMessageType(attachments),
		Content:        content,
		ReplyToID:      replyToID,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].MessageID = msg.ID
		}
		if len(attachments) > 0 {
			if err := tx.Create(&attachments).Error; err != nil {
				return err
			}
		}
		return s.ConvRepo.TouchLastMessage(tx, convID, msg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	msg.Attachments = attachments

	monitoring.MessageCounter.WithLabelValues(string(msg.Type)).Inc()
	s.afterAppend(convID, senderID, msg)

	return msg, nil
}

// afterAppend 提交后的推送与通知：实时事件给所有在会成员，
// 通知扇出跳过开了会话免打扰的成员，用户级拉黑/免打扰由扇出自己判
func (s *MessageService) afterAppend(convID string, senderID uint, msg *model.Message) {
	conv, err := s.ConvRepo.GetByID(convID)
	if err != nil {
		logger.Log.Error("Post-commit conversation load failed",
			zap.Error(err), zap.String("conversationId", convID))
		return
	}

	var pushIDs, notifyIDs []uint
	for _, p := range conv.Participants {
		if !p.Active() || p.UserID == senderID {
			continue
		}
		pushIDs = append(pushIDs, p.UserID)
		if !p.IsMuted {
			notifyIDs = append(notifyIDs, p.UserID)
		}
	}
	s.MessageRepo.InvalidateUnread(convID, pushIDs...)

	if s.Hub != nil && len(pushIDs) > 0 {
		s.Hub.PushToUsers(pushIDs, Event{Type: "NEW_MESSAGE", Data: msg})
	}
	if s.NotificationService != nil && len(notifyIDs) > 0 {
		go s.NotificationService.Fanout(FanoutEvent{
			Type:       model.NotifyMessage,
			ActorID:    senderID,
			Recipients: notifyIDs,
			Subject:    model.MessageSubject(msg.ID),
		})
	}
}

func deriveMessageType(attachments []model.MessageAttachment) model.MessageType {
	if len(attachments) == 0 {
		return model.MessageText
	}
	switch {
	case strings.HasPrefix(attachments[0].MimeType, "image/"):
		return model.MessageImage
	case strings.HasPrefix(attachments[0].MimeType, "video/"):
		return model.MessageVideo
	default:
		return model.MessageFile
	}
}

// Edit 只有发送者本人可编辑，旧内容不保留
func (s *MessageService) Edit(msgID string, senderID uint, newContent string) (*model.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, util.ErrEmptyMessage
	}

	msg, err := s.MessageRepo.GetByID(msgID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID == nil || *msg.SenderID != senderID {
		return nil, util.ErrUnauthorized
	}

	now := time.Now()
	err = s.DB.Model(&model.Message{}).
		Where("id = ?", msgID).
		Updates(map[string]interface{}{
			"content":   newContent,
			"is_edited": true,
			"edited_at": now,
		}).Error
	if err != nil {
		return nil, err
	}

	msg.Content = newContent
	msg.IsEdited = true
	msg.EditedAt = &now

	if s.Hub != nil {
		if ids, err := s.ConvRepo.ActiveParticipantIDs(msg.ConversationID, senderID); err == nil {
			s.Hub.PushToUsers(ids, Event{Type: "MESSAGE_EDITED", Data: msg})
		}
	}
	return msg, nil
}

// Delete 只有发送者本人可删，物理删除，已读游标不回调
func (s *MessageService) Delete(msgID string, senderID uint) error {
	msg, err := s.MessageRepo.GetByID(msgID)
	if err != nil {
		return err
	}
	if msg.SenderID == nil || *msg.SenderID != senderID {
		return util.ErrUnauthorized
	}

	if err := s.MessageRepo.DeleteWithAttachments(msgID); err != nil {
		return err
	}

	if ids, err := s.ConvRepo.ActiveParticipantIDs(msg.ConversationID, senderID); err == nil {
		s.MessageRepo.InvalidateUnread(msg.ConversationID, ids...)
		if s.Hub != nil {
			s.Hub.PushToUsers(ids, Event{
				Type: "MESSAGE_DELETED",
				Data: map[string]interface{}{"conversationId": msg.ConversationID, "messageId": msgID},
			})
		}
	}
	return nil
}

// History before 零值表示取最新一页
func (s *MessageService) History(userID uint, convID string, limit int, before time.Time) ([]model.Message, error) {
	if _, err := s.ConvRepo.GetActiveParticipant(convID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.MessageRepo.ListByConversation(convID, limit, before)
}
