package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

var _ domain.UserRepository = (*UserRepo)(nil)

const userListColumns = "users.id, users.username, users.email, users.name, users.image, users.role_id, " +
	"users.created_at, users.updated_at, roles.name AS role_name"

func (r *UserRepo) joined(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Joins("LEFT JOIN roles ON roles.id = users.role_id")
}

func (r *UserRepo) List(ctx context.Context, f listing.Filters, limit, offset int) ([]domain.UserRow, error) {
	type row struct {
		domain.User
		RoleName *string
	}
	var rows []row
	err := r.joined(ctx).
		Scopes(applyFilters(f)).
		Select(userListColumns).
		Order("users.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserRow, 0, len(rows))
	for _, x := range rows {
		ur := domain.UserRow{User: x.User}
		if x.RoleName != nil {
			ur.RoleName = *x.RoleName
		}
		out = append(out, ur)
	}
	return out, nil
}

func (r *UserRepo) Count(ctx context.Context, f listing.Filters) (int64, error) {
	var total int64
	err := r.joined(ctx).Scopes(applyFilters(f)).Count(&total).Error
	return total, err
}

func (r *UserRepo) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, id uint64, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(columns).Error
	return translate(err)
}

func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{}).Error
}

// applyFilters 列名来自白名单 Schema，可以直接拼进条件
func applyFilters(f listing.Filters) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		for _, c := range f {
			q = q.Where(fmt.Sprintf("%s %s ?", c.Column, c.Op), c.Value)
		}
		return q
	}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDupKey(err) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return err
}

func isDupKey(err error) bool {
	// 不依赖驱动错误类型，兼容 mysql/postgres 的报错文案
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
