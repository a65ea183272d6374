package util

import (
	"errors"
	"net/http"

	"socialhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// DomainError 把核心层的哨兵错误映射到HTTP状态码
// 校验→400 授权/拉黑→403 未找到→404 冲突→409 其余→500
func DomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSelfReference),
		errors.Is(err, ErrEmptyGroup),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrBadReplyTo),
		errors.Is(err, ErrInvalidOperation):
		Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrBlocked):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoPendingRequest):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyFollowing),
		errors.Is(err, ErrRequestPending),
		errors.Is(err, ErrNotFollowing):
		Error(c, http.StatusConflict, err.Error())
	default:
		LogInternalError(c, err)
	}
}
