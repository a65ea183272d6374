package util

import "errors"

var (
	// 校验类：落库前拒绝
	ErrSelfReference = errors.New("operation cannot target yourself")
	ErrEmptyGroup    = errors.New("group needs at least one participant besides the creator")
	ErrEmptyMessage  = errors.New("message needs content or at least one attachment")
	ErrBadReplyTo    = errors.New("reply target belongs to another conversation")

	// 冲突类：目标状态已满足或互相矛盾
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrRequestPending   = errors.New("follow request already pending")
	ErrNotFollowing     = errors.New("not following this user")
	ErrNoPendingRequest = errors.New("no pending follow request from this user")

	// 授权类
	ErrBlocked          = errors.New("blocked relationship")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidOperation = errors.New("operation not valid for this conversation type")

	// 未找到
	ErrNotFound = errors.New("resource not found")
)
