package domain

import "errors"

var (
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrNotFound           = errors.New("not found")
	// 配置前置条件缺失（角色未初始化），不直接暴露给终端用户
	ErrRoleNotProvisioned = errors.New("role not provisioned")
)
