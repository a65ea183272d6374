package controller

import (
	"strconv"

	"socialhub_backend/internal/model"
	"socialhub_backend/internal/service"
	"socialhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// CommunityController 处理帖子/评论/表态相关的HTTP请求
type CommunityController struct {
	CommunityService *service.CommunityService
}

// CommentRequest 评论请求
type CommentRequest struct {
	Content  string  `json:"content" binding:"required" example:"写得好"`
	ParentID *string `json:"parentId" example:"uuid-of-parent"`
}

// ReactRequest 表态请求
type ReactRequest struct {
	Kind string `json:"kind" binding:"required" example:"like"`
}

func NewCommunityController(communityService *service.CommunityService) *CommunityController {
	return &CommunityController{CommunityService: communityService}
}

// CreatePost godoc
// @Summary 发布帖子
// @Description multipart 表单：content 文本、image 可选配图
// @Tags 社区
// @Accept mpfd
// @Produce json
// @Security ApiKeyAuth
// @Param content formData string false "文本内容"
// @Param image formData file false "配图"
// @Success 201 {object} util.Response{data=model.Post} "成功"
// @Router /api/posts [post]
func (ctrl *CommunityController) CreatePost(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	content := c.PostForm("content")

	var image *service.AttachmentUpload
	if fh, err := c.FormFile("image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			util.BadRequest(c, err.Error())
			return
		}
		defer f.Close()
		image = &service.AttachmentUpload{
			Filename:    fh.Filename,
			Reader:      f,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
		}
	}

	post, err := ctrl.CommunityService.CreatePost(c.Request.Context(), claims.UserID, content, image)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, post)
}

// GetPost godoc
// @Summary 帖子详情
// @Tags 社区
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} util.Response{data=model.Post} "成功"
// @Router /api/posts/{id} [get]
func (ctrl *CommunityController) GetPost(c *gin.Context) {
	post, err := ctrl.CommunityService.GetPost(c.Param("id"))
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, post)
}

// DeletePost godoc
// @Summary 删除帖子
// @Description 仅作者本人，评论与表态一并删除
// @Tags 社区
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/posts/{id} [delete]
func (ctrl *CommunityController) DeletePost(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.CommunityService.DeletePost(c.Param("id"), claims.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Comment godoc
// @Summary 评论帖子
// @Description 帖子作者会收到 comment 通知
// @Tags 社区
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Param request body CommentRequest true "评论内容"
// @Success 201 {object} util.Response{data=model.Comment} "成功"
// @Router /api/posts/{id}/comments [post]
func (ctrl *CommunityController) Comment(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	comment, err := ctrl.CommunityService.Comment(c.Param("id"), claims.UserID, req.Content, req.ParentID)
	if err != nil {
		util.DomainError(c, err)
		return
	}
	util.Created(c, comment)
}

// ListComments godoc
// @Summary 评论列表
// @Tags 社区
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/posts/{id}/comments [get]
func (ctrl *CommunityController) ListComments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}

	comments, total, err := ctrl.CommunityService.ListComments(c.Param("id"), limit, (page-1)*limit)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, util.PageResponse{List: comments, Total: total, Page: page, Limit: limit})
}

// React godoc
// @Summary 表态
// @Description 同一用户对同一帖子只保留一条表态，换类型是覆盖；作者收到 like 通知
// @Tags 社区
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Param request body ReactRequest true "表态种类 like|love|laugh"
// @Success 200 {object} util.Response "成功"
// @Router /api/posts/{id}/reactions [post]
func (ctrl *CommunityController) React(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	kind := model.ReactionKind(req.Kind)
	switch kind {
	case model.ReactionLike, model.ReactionLove, model.ReactionLaugh:
	default:
		util.BadRequest(c, "invalid reaction kind")
		return
	}

	if err := ctrl.CommunityService.React(c.Param("id"), claims.UserID, kind); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}

// Unreact godoc
// @Summary 取消表态
// @Tags 社区
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/posts/{id}/reactions [delete]
func (ctrl *CommunityController) Unreact(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	if err := ctrl.CommunityService.Unreact(c.Param("id"), claims.UserID); err != nil {
		util.DomainError(c, err)
		return
	}
	util.Success(c, nil)
}
