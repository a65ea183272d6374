package controller

import (
	"strconv"

	"socialhub_backend/internal/service"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// RelationshipController 处理关注/拉黑/免打扰相关的HTTP请求
type RelationshipController struct {
	RelationshipService *service.RelationshipService
}

// MuteRequest 免打扰请求，DurationHours 为空表示永久
type MuteRequest struct {
	DurationHours *int `json:"durationHours" example:"24"`
}

func NewRelationshipController(relationshipService *service.RelationshipService) *RelationshipController {
	return &RelationshipController{RelationshipService: relationshipService}
}

func pathUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		util.BadRequest(c, "invalid user id")
		return 0, false
	}
	return uint(id), true
}

// Follow godoc
// @Summary 关注用户
// @Description 关注目标用户，私密主页会生成待确认请求
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Success 201 {object} util.Response{data=service.FollowResult} "成功"
// @Failure 409 {object} util.Response "已关注或请求待确认"
// @Router /api/users/{id}/follow [post]
func (ctrl *RelationshipController) Follow(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	result, err := ctrl.RelationshipService.Follow(claims.UserID, targetID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, result)
}

// Unfollow godoc
// @Summary 取消关注
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id}/follow [delete]
func (ctrl *RelationshipController) Unfollow(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.Unfollow(claims.UserID, targetID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// AcceptRequest godoc
// @Summary 同意关注请求
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "请求方用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/follow-requests/{id}/accept [post]
func (ctrl *RelationshipController) AcceptRequest(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	followerID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.AcceptFollowRequest(claims.UserID, followerID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// RejectRequest godoc
// @Summary 拒绝关注请求
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "请求方用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/follow-requests/{id}/reject [post]
func (ctrl *RelationshipController) RejectRequest(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	followerID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.RejectFollowRequest(claims.UserID, followerID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Block godoc
// @Summary 拉黑用户
// @Description 拉黑并斩断双方之间的关注关系，重复拉黑幂等
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id}/block [post]
func (ctrl *RelationshipController) Block(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.Block(claims.UserID, targetID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Unblock godoc
// @Summary 取消拉黑
// @Description 之前的关注关系不会恢复
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id}/block [delete]
func (ctrl *RelationshipController) Unblock(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.Unblock(claims.UserID, targetID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Mute godoc
// @Summary 设置免打扰
// @Description 屏蔽来自目标用户的社交类通知，可带时限
// @Tags 社交关系
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Param request body MuteRequest false "时限(小时)"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id}/mute [post]
func (ctrl *RelationshipController) Mute(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	var req MuteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.BadRequest(c, err.Error())
			return
		}
	}

	if err := ctrl.RelationshipService.Mute(claims.UserID, targetID, req.DurationHours); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Unmute godoc
// @Summary 取消免打扰
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "目标用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id}/mute [delete]
func (ctrl *RelationshipController) Unmute(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	if err := ctrl.RelationshipService.Unmute(claims.UserID, targetID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Followers godoc
// @Summary 粉丝列表
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Router /api/relationships/followers [get]
func (ctrl *RelationshipController) Followers(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	users, err := ctrl.RelationshipService.Followers(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, users)
}

// Following godoc
// @Summary 关注列表
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Router /api/relationships/following [get]
func (ctrl *RelationshipController) Following(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	users, err := ctrl.RelationshipService.Following(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, users)
}

// PendingRequests godoc
// @Summary 待确认的关注请求
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Follow} "成功"
// @Router /api/relationships/requests [get]
func (ctrl *RelationshipController) PendingRequests(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	reqs, err := ctrl.RelationshipService.PendingRequests(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, reqs)
}

// BlockedUsers godoc
// @Summary 拉黑列表
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Router /api/relationships/blocked [get]
func (ctrl *RelationshipController) BlockedUsers(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	users, err := ctrl.RelationshipService.BlockedUsers(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, users)
}

// Mutes godoc
// @Summary 生效中的免打扰列表
// @Tags 社交关系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Mute} "成功"
// @Router /api/relationships/mutes [get]
func (ctrl *RelationshipController) Mutes(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	mutes, err := ctrl.RelationshipService.ActiveMutes(claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, mutes)
}
