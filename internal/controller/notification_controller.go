package controller

import (
	"strconv"

	"socialhub_backend/internal/service"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// NotificationController 处理通知收件箱相关的HTTP请求
type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// List godoc
// @Summary 通知列表
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param unread query bool false "只看未读"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/notifications [get]
func (ctrl *NotificationController) List(c *gin.Context) {
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
	unreadOnly := c.Query("unread") == "true"

	items, total, err := ctrl.NotificationService.List(claims.UserID, unreadOnly, limit, (page-1)*limit)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: items, Total: total, Page: page, Limit: limit})
}

// UnreadCount godoc
// @Summary 未读通知数
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response "成功"
// @Router /api/notifications/unread-count [get]
func (ctrl *NotificationController) UnreadCount(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	count, err := ctrl.NotificationService.UnreadCount(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, gin.H{"unreadCount": count})
}

// MarkRead godoc
// @Summary 标记单条已读
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "通知ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "不是本人的通知"
// @Router /api/notifications/{id}/read [post]
func (ctrl *NotificationController) MarkRead(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid notification id")
		return
	}

	if err := ctrl.NotificationService.MarkAsRead(uint(id), claims.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// MarkAllRead godoc
// @Summary 全部标为已读
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response "成功"
// @Router /api/notifications/read-all [post]
func (ctrl *NotificationController) MarkAllRead(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.NotificationService.MarkAllRead(claims.UserID); err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, nil)
}

// Delete godoc
// @Summary 删除单条通知
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "通知ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/notifications/{id} [delete]
func (ctrl *NotificationController) Delete(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(c, "invalid notification id")
		return
	}

	if err := ctrl.NotificationService.Delete(uint(id), claims.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// ClearAll godoc
// @Summary 清空通知
// @Tags 通知
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response "成功"
// @Router /api/notifications [delete]
func (ctrl *NotificationController) ClearAll(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.NotificationService.ClearAll(claims.UserID); err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, nil)
}
