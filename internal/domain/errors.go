package domain

import "errors"

// 业务层哨兵错误，调用方用 fmt.Errorf("...: %w", err) 包一层上下文，
// 传输层通过 errors.Is 映射到响应码。
var (
	// ErrValidation 入参缺失或不合法
	ErrValidation = errors.New("validation error")

	// ErrNotFound id 对应的记录不存在
	ErrNotFound = errors.New("not found")

	// ErrConflict 唯一键冲突（用户名已存在）
	ErrConflict = errors.New("already exists")

	// ErrPersistence 存储层调用失败
	ErrPersistence = errors.New("persistence error")
)
