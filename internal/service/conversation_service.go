package service

import (
	"errors"
	"fmt"
	"time"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/repository"
	"socialhub_backend/internal/util"
	"socialhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConversationService 会话生命周期：私聊去重、群聊创建/退出/邀请
// 私聊靠 DirectKey 唯一索引去重；群聊成员集只增不减，退出只是打标
type ConversationService struct {
	DB           *gorm.DB
	ConvRepo     *repository.ConversationRepository
	MessageRepo  *repository.MessageRepository
	RelationRepo *repository.RelationshipRepository
	UserRepo     *repository.UserRepository
	Hub          *RealtimeHub
}

func NewConversationService(
	db *gorm.DB,
	convRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	relationRepo *repository.RelationshipRepository,
	userRepo *repository.UserRepository,
	hub *RealtimeHub,
) *ConversationService {
	return &ConversationService{
		DB:           db,
		ConvRepo:     convRepo,
		MessageRepo:  messageRepo,
		RelationRepo: relationRepo,
		UserRepo:     userRepo,
		Hub:          hub,
	}
}

// FindOrCreateDirect 两个用户间的私聊有且只有一个，参数顺序无关
func (s *ConversationService) FindOrCreateDirect(userID, peerID uint) (*model.Conversation, error) {
	if userID == peerID {
		return nil, util.ErrSelfReference
	}

	if _, err := s.UserRepo.FindByID(peerID); err != nil {
		return nil, err
	}

	blocked, err := s.RelationRepo.IsBlockedBetween(userID, peerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, util.ErrBlocked
	}

	key := model.DirectConversationKey(userID, peerID)
	if conv, err := s.ConvRepo.FindByDirectKey(key); err == nil {
		return conv, nil
	} else if !errors.Is(err, util.ErrNotFound) {
		return nil, err
	}

	conv := &model.Conversation{
		Type:      model.ConversationDirect,
		CreatorID: userID,
		DirectKey: &key,
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		participants := []model.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userID, Role: model.RoleMember},
			{ConversationID: conv.ID, UserID: peerID, Role: model.RoleMember},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		// 并发下两边同时创建：唯一索引兜底，返回先落库的那个
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.ConvRepo.FindByDirectKey(key)
		}
		return nil, err
	}

	return s.ConvRepo.GetByID(conv.ID)
}

// CreateGroup participantIDs 去重并剔除创建者，剔完为空则拒绝
func (s *ConversationService) CreateGroup(creatorID uint, name string, participantIDs []uint) (*model.Conversation, error) {
	seen := map[uint]bool{creatorID: true}
	var members []uint
	for _, id := range participantIDs {
		if !seen[id] {
			seen[id] = true
			members = append(members, id)
		}
	}
	if len(members) == 0 {
		return nil, util.ErrEmptyGroup
	}

	creator, err := s.UserRepo.FindByID(creatorID)
	if err != nil {
		return nil, err
	}

	conv := &model.Conversation{
		Type:      model.ConversationGroup,
		Name:      name,
		CreatorID: creatorID,
	}
	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}

		participants := []model.ConversationParticipant{
			{ConversationID: conv.ID, UserID: creatorID, Role: model.RoleAdmin},
		}
		for _, id := range members {
			participants = append(participants, model.ConversationParticipant{
				ConversationID: conv.ID, UserID: id, Role: model.RoleMember,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}

		sysMsg := &model.Message{
			ConversationID: conv.ID,
			Type:           model.MessageSystem,
			Content:        fmt.Sprintf("%s created the group", creator.Name),
			CreatedAt:      now,
		}
		if err := tx.Create(sysMsg).Error; err != nil {
			return err
		}
		return s.ConvRepo.TouchLastMessage(tx, conv.ID, now)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Group created",
		zap.String("conversationId", conv.ID), zap.Uint("creatorId", creatorID))

	if s.Hub != nil {
		s.Hub.PushToUsers(members, Event{Type: "CONVERSATION_CREATED", Data: conv})
	}
	return s.ConvRepo.GetByID(conv.ID)
}

// LeaveConversation 私聊不可退出；退出打标 + 系统消息，历史不回收
func (s *ConversationService) LeaveConversation(userID uint, convID string) error {
	conv, err := s.ConvRepo.GetByID(convID)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return util.ErrInvalidOperation
	}

	if _, err := s.ConvRepo.GetActiveParticipant(convID, userID); err != nil {
		return err
	}

	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.ConvRepo.SetParticipantLeft(tx, convID, userID, now); err != nil {
			return err
		}
		sysMsg := &model.Message{
			ConversationID: convID,
			Type:           model.MessageSystem,
			Content:        fmt.Sprintf("%s left the group", user.Name),
			CreatedAt:      now,
		}
		if err := tx.Create(sysMsg).Error; err != nil {
			return err
		}
		return s.ConvRepo.TouchLastMessage(tx, convID, now)
	})
	if err != nil {
		return err
	}

	s.ConvRepo.InvalidateParticipants(convID)

	if s.Hub != nil {
		if ids, err := s.ConvRepo.ActiveParticipantIDs(convID, userID); err == nil {
			s.Hub.PushToUsers(ids, Event{
				Type: "PARTICIPANT_LEFT",
				Data: map[string]interface{}{"conversationId": convID, "userId": userID},
			})
		}
	}
	return nil
}

// InviteParticipant 群聊管理员邀请；曾退出的成员重新拉回时清空 left_at
func (s *ConversationService) InviteParticipant(adminID uint, convID string, userID uint) error {
	conv, err := s.ConvRepo.GetByID(convID)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return util.ErrInvalidOperation
	}

	admin, err := s.ConvRepo.GetActiveParticipant(convID, adminID)
	if err != nil {
		return err
	}
	if admin.Role != model.RoleAdmin {
		return util.ErrUnauthorized
	}

	invitee, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		existing, perr := s.ConvRepo.GetParticipantTx(tx, convID, userID)
		if perr == nil {
			if existing.Active() {
				return util.ErrInvalidOperation
			}
			if err := tx.Model(&model.ConversationParticipant{}).
				Where("conversation_id = ? AND user_id = ?", convID, userID).
				Updates(map[string]interface{}{"left_at": nil, "joined_at": now}).Error; err != nil {
				return err
			}
		} else if errors.Is(perr, util.ErrNotFound) {
			p := &model.ConversationParticipant{
				ConversationID: convID,
				UserID:         userID,
				Role:           model.RoleMember,
			}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		} else {
			return perr
		}

		sysMsg := &model.Message{
			ConversationID: convID,
			Type:           model.MessageSystem,
			Content:        fmt.Sprintf("%s joined the group", invitee.Name),
			CreatedAt:      now,
		}
		if err := tx.Create(sysMsg).Error; err != nil {
			return err
		}
		return s.ConvRepo.TouchLastMessage(tx, convID, now)
	})
	if err != nil {
		return err
	}

	s.ConvRepo.InvalidateParticipants(convID)

	if s.Hub != nil {
		if ids, err := s.ConvRepo.ActiveParticipantIDs(convID, adminID); err == nil {
			s.Hub.PushToUsers(ids, Event{
				Type: "PARTICIPANT_JOINED",
				Data: map[string]interface{}{"conversationId": convID, "userId": userID},
			})
		}
	}
	return nil
}

// ToggleMute 翻转会话级免打扰，返回新值，重复调用不报错
func (s *ConversationService) ToggleMute(userID uint, convID string) (bool, error) {
	p, err := s.ConvRepo.GetActiveParticipant(convID, userID)
	if err != nil {
		return false, err
	}

	newVal := !p.IsMuted
	if err := s.ConvRepo.SetParticipantMuted(convID, userID, newVal); err != nil {
		return false, err
	}
	return newVal, nil
}

// GetConversation 读取也要求在会话中
func (s *ConversationService) GetConversation(userID uint, convID string) (*model.Conversation, error) {
	if _, err := s.ConvRepo.GetActiveParticipant(convID, userID); err != nil {
		return nil, err
	}
	return s.ConvRepo.GetByID(convID)
}

// ConversationSummary 列表项：会话 + 该用户的未读数
type ConversationSummary struct {
	model.Conversation
	UnreadCount int64 `json:"unreadCount"`
}

func (s *ConversationService) ListConversations(userID uint, limit, offset int, unread *UnreadService) ([]ConversationSummary, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	convs, total, err := s.ConvRepo.ListForUser(userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, c := range convs {
		summary := ConversationSummary{Conversation: c}
		if unread != nil {
			if n, err := unread.ComputeUnreadCount(userID, c.ID); err == nil {
				summary.UnreadCount = n
			}
		}
		out = append(out, summary)
	}
	return out, total, nil
}
