package domain

import (
	"context"
	"time"

	"go-gin-user-admin/internal/listing"
)

type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email        string    `gorm:"size:191" json:"email"`
	Name         string    `gorm:"size:64" json:"name"`
	Image        string    `gorm:"size:255" json:"image"`
	RoleID       uint64    `gorm:"index" json:"role_id"`
	PasswordHash string    `gorm:"column:password;size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// UserRow 列表查询结果（users LEFT JOIN roles）
type UserRow struct {
	User
	RoleName string
}

// NewUser 创建入参；Password 为明文
type NewUser struct {
	Username string
	Email    string
	Name     string
	Password string
	RoleID   *uint64
}

// UserPatch 局部更新：nil 表示未提供，非 nil（即便是空串）表示要写入
type UserPatch struct {
	Username *string
	Email    *string
	Name     *string
	Image    *string
	Password *string
	RoleID   *uint64
}

func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Name == nil &&
		p.Image == nil && p.Password == nil && p.RoleID == nil
}

// ---------- 对外视图（均不含密码哈希） ----------

type UserListItem struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	RoleID    uint64    `json:"role_id"`
	RoleName  string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserDetail struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRecord 写操作（create/update/delete）的返回，image 为存储的相对路径
type UserRecord struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	RoleID    uint64    `json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) Record() UserRecord {
	return UserRecord{
		ID: u.ID, Username: u.Username, Email: u.Email, Name: u.Name,
		Image: u.Image, RoleID: u.RoleID, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

// UserRepository 存储层契约；FindByID 查不到时返回 (nil, nil)
type UserRepository interface {
	List(ctx context.Context, f listing.Filters, limit, offset int) ([]UserRow, error)
	Count(ctx context.Context, f listing.Filters) (int64, error)
	FindByID(ctx context.Context, id uint64) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id uint64, columns map[string]any) error
	Delete(ctx context.Context, id uint64) error
}

// 列表可过滤字段
var UserFilterSchema = listing.Schema{
	{Param: "id", Column: "users.id", Op: listing.OpEq, Kind: listing.KindInt},
	{Param: "username", Column: "users.username", Op: listing.OpEq, Kind: listing.KindString},
	{Param: "email", Column: "users.email", Op: listing.OpEq, Kind: listing.KindString},
	{Param: "name", Column: "users.name", Op: listing.OpEq, Kind: listing.KindString},
	{Param: "role_id", Column: "users.role_id", Op: listing.OpEq, Kind: listing.KindInt},
	{Param: "role_name", Column: "roles.name", Op: listing.OpEq, Kind: listing.KindString},
	{Param: "created_from", Column: "users.created_at", Op: listing.OpGte, Kind: listing.KindTime},
	{Param: "created_to", Column: "users.created_at", Op: listing.OpLte, Kind: listing.KindTime},
}
