package controller

import (
	"socialhub_backend/internal/service"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 处理用户资料相关的HTTP请求
// 注册/登录由外部身份服务负责，这里只有资料读写
type UserController struct {
	UserService         *service.UserService
	RelationshipService *service.RelationshipService
}

func NewUserController(userService *service.UserService, relationshipService *service.RelationshipService) *UserController {
	return &UserController{
		UserService:         userService,
		RelationshipService: relationshipService,
	}
}

// Me godoc
// @Summary 当前用户资料
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Router /api/users/me [get]
func (ctrl *UserController) Me(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	user, err := ctrl.UserService.GetProfile(claims.UserID, claims.UserID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, user)
}

// GetProfile godoc
// @Summary 用户资料
// @Description 被任一方向拉黑时返回404，附带查看者视角的关注状态
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/{id} [get]
func (ctrl *UserController) GetProfile(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	targetID, ok := pathUserID(c)
	if !ok {
		return
	}

	user, err := ctrl.UserService.GetProfile(claims.UserID, targetID)
	if err != nil {
		util.DomainError(c, err)
		return
	}

	followStatus, err := ctrl.RelationshipService.FollowStatus(claims.UserID, targetID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, gin.H{"user": user, "followStatus": followStatus})
}

// UpdateProfile godoc
// @Summary 更新资料
// @Description 可更新昵称、简介和主页可见性(public|private)
// @Tags 用户
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.ProfileUpdate true "更新内容"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Router /api/users/me [put]
func (ctrl *UserController) UpdateProfile(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	user, err := ctrl.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "头像文件"
// @Success 200 {object} util.Response "成功"
// @Router /api/users/me/avatar [post]
func (ctrl *UserController) UploadAvatar(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		util.BadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	defer f.Close()

	url, err := ctrl.UserService.UploadAvatar(c.Request.Context(), claims.UserID, service.AttachmentUpload{
		Filename:    fh.Filename,
		Reader:      f,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, gin.H{"avatar": url})
}

// Search godoc
// @Summary 搜索用户
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Param q query string true "查询串"
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Router /api/users/search [get]
func (ctrl *UserController) Search(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	q := c.Query("q")
	if q == "" {
		util.BadRequest(c, "q is required")
		return
	}

	users, err := ctrl.UserService.Search(q, 20)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, users)
}
