package services

import "errors"

// 服务层对外的三类失败信号。Handler 只根据这三个哨兵错误映射 HTTP 状态码，
// 其余错误一律按内部错误处理。
var (
	// ErrNotFound 目标不存在。存在性永远先于权限判断：
	// 不存在的任务对任何调用方都报 ErrNotFound，不会泄露成权限错误。
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied 目标存在但调用方无权操作
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation 请求内容不合法
	ErrValidation = errors.New("validation failed")
)
