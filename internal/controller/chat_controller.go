package controller

import (
	"strconv"
	"time"

	"socialhub_backend/internal/service"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ChatController 处理会话与消息相关的HTTP请求
type ChatController struct {
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	UnreadService       *service.UnreadService
	Hub                 *service.RealtimeHub
}

// CreateDirectRequest 发起私聊请求
type CreateDirectRequest struct {
	TargetUserID uint `json:"targetUserId" binding:"required" example:"2"`
}

// CreateGroupRequest 创建群聊请求
type CreateGroupRequest struct {
	Name           string `json:"name" binding:"required" example:"周末球局"`
	ParticipantIDs []uint `json:"participantIds" swaggertype:"array,number" example:"1,2,3"`
}

// InviteRequest 邀请入群请求
type InviteRequest struct {
	UserID uint `json:"userId" binding:"required" example:"4"`
}

// EditMessageRequest 编辑消息请求
type EditMessageRequest struct {
	Content string `json:"content" binding:"required" example:"改过的内容"`
}

func NewChatController(
	conversationService *service.ConversationService,
	messageService *service.MessageService,
	unreadService *service.UnreadService,
	hub *service.RealtimeHub,
) *ChatController {
	return &ChatController{
		ConversationService: conversationService,
		MessageService:      messageService,
		UnreadService:       unreadService,
		Hub:                 hub,
	}
}

// HandleWS godoc
// @Summary WebSocket 连接
// @Description 建立 WebSocket 连接以接收实时事件
// @Tags 会话
// @Security ApiKeyAuth
// @Param token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /api/chat/ws [get]
func (ctrl *ChatController) HandleWS(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	service.ServeWs(ctrl.Hub, c.Writer, c.Request, claims.UserID)
}

// CreateDirect godoc
// @Summary 发起或获取私聊
// @Description 同一对用户只存在一个私聊会话，已存在时直接返回
// @Tags 会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateDirectRequest true "发起私聊请求"
// @Success 200 {object} util.Response{data=model.Conversation} "成功"
// @Router /api/chat/direct [post]
func (ctrl *ChatController) CreateDirect(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req CreateDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	conv, err := ctrl.ConversationService.FindOrCreateDirect(claims.UserID, req.TargetUserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, conv)
}

// CreateGroup godoc
// @Summary 创建群聊
// @Tags 会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body CreateGroupRequest true "创建群聊请求"
// @Success 201 {object} util.Response{data=model.Conversation} "成功"
// @Router /api/chat/groups [post]
func (ctrl *ChatController) CreateGroup(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	conv, err := ctrl.ConversationService.CreateGroup(claims.UserID, req.Name, req.ParticipantIDs)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, conv)
}

// ListConversations godoc
// @Summary 会话列表
// @Description 按最近消息倒序，附带每个会话的未读数
// @Tags 会话
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/chat/conversations [get]
func (ctrl *ChatController) ListConversations(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}

	convs, total, err := ctrl.ConversationService.ListConversations(claims.UserID, limit, (page-1)*limit, ctrl.UnreadService)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: convs, Total: total, Page: page, Limit: limit})
}

// GetConversation godoc
// @Summary 会话详情
// @Tags 会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response{data=model.Conversation} "成功"
// @Router /api/chat/conversations/{id} [get]
func (ctrl *ChatController) GetConversation(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	conv, err := ctrl.ConversationService.GetConversation(claims.UserID, c.Param("id"))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, conv)
}

// LeaveConversation godoc
// @Summary 退出群聊
// @Description 私聊不可退出；历史消息保留
// @Tags 会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/chat/conversations/{id}/leave [post]
func (ctrl *ChatController) LeaveConversation(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.ConversationService.LeaveConversation(claims.UserID, c.Param("id")); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// InviteParticipant godoc
// @Summary 邀请入群
// @Description 仅群管理员可邀请，退出过的成员会被重新拉回
// @Tags 会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param request body InviteRequest true "邀请请求"
// @Success 200 {object} util.Response "成功"
// @Router /api/chat/conversations/{id}/invite [post]
func (ctrl *ChatController) InviteParticipant(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	if err := ctrl.ConversationService.InviteParticipant(claims.UserID, c.Param("id"), req.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// ToggleMute godoc
// @Summary 切换会话免打扰
// @Tags 会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response "成功，data.muted 为新状态"
// @Router /api/chat/conversations/{id}/mute [post]
func (ctrl *ChatController) ToggleMute(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	muted, err := ctrl.ConversationService.ToggleMute(claims.UserID, c.Param("id"))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, gin.H{"muted": muted})
}

// GetMessages godoc
// @Summary 历史消息
// @Description 倒序翻页，before 传上一页最旧一条的时间戳；读取同时推进已读游标
// @Tags 消息
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param limit query int false "每页数量"
// @Param before query string false "RFC3339 时间游标"
// @Success 200 {object} util.Response{data=[]model.Message} "成功"
// @Router /api/chat/conversations/{id}/messages [get]
func (ctrl *ChatController) GetMessages(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	convID := c.Param("id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			util.BadRequest(c, "invalid before cursor")
			return
		}
		before = t
	}

	msgs, err := ctrl.MessageService.History(claims.UserID, convID, limit, before)
	if err != nil {
		util.DomainError(c, err)
		return
	}

	// 拉取历史即视为已读
	if err := ctrl.UnreadService.MarkRead(claims.UserID, convID); err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, msgs)
}

// SendMessage godoc
// @Summary 发送消息
// @Description multipart 表单：content 文本、replyToId 可选、files 附件(可多个)
// @Tags 消息
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Param content formData string false "文本内容"
// @Param replyToId formData string false "被回复消息ID"
// @Success 201 {object} util.Response{data=model.Message} "成功"
// @Router /api/chat/conversations/{id}/messages [post]
func (ctrl *ChatController) SendMessage(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	convID := c.Param("id")
	content := c.PostForm("content")

	var replyTo *string
	if raw := c.PostForm("replyToId"); raw != "" {
		replyTo = &raw
	}

	var uploads []service.AttachmentUpload
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				util.BadRequest(c, err.Error())
				return
			}
			defer f.Close()
			uploads = append(uploads, service.AttachmentUpload{
				Filename:    fh.Filename,
				Reader:      f,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
			})
		}
	}

	msg, err := ctrl.MessageService.Append(c.Request.Context(), convID, claims.UserID, content, replyTo, uploads)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, msg)
}

// EditMessage godoc
// @Summary 编辑消息
// @Description 仅发送者本人，旧内容不保留
// @Tags 消息
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "消息ID"
// @Param request body EditMessageRequest true "新内容"
// @Success 200 {object} util.Response{data=model.Message} "成功"
// @Router /api/chat/messages/{id} [put]
func (ctrl *ChatController) EditMessage(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	msg, err := ctrl.MessageService.Edit(c.Param("id"), claims.UserID, req.Content)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, msg)
}

// DeleteMessage godoc
// @Summary 删除消息
// @Description 仅发送者本人，物理删除，附件一并删除
// @Tags 消息
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "消息ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/chat/messages/{id} [delete]
func (ctrl *ChatController) DeleteMessage(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.MessageService.Delete(c.Param("id"), claims.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// MarkRead godoc
// @Summary 标记会话已读
// @Description 已读游标只前进不后退
// @Tags 消息
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/chat/conversations/{id}/read [post]
func (ctrl *ChatController) MarkRead(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.UnreadService.MarkRead(claims.UserID, c.Param("id")); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// UnreadCount godoc
// @Summary 单个会话未读数
// @Tags 消息
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "会话ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/chat/conversations/{id}/unread [get]
func (ctrl *ChatController) UnreadCount(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	count, err := ctrl.UnreadService.ComputeUnreadCount(claims.UserID, c.Param("id"))
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, gin.H{"unreadCount": count})
}
