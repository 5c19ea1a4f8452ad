package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
)

type RoleRepo struct{ db *gorm.DB }

func NewRoleRepo(db *gorm.DB) *RoleRepo { return &RoleRepo{db: db} }

var _ domain.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) List(ctx context.Context, f listing.Filters, limit, offset int) ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.WithContext(ctx).
		Model(&domain.Role{}).
		Scopes(applyFilters(f)).
		Order("roles.id ASC").
		Limit(limit).
		Offset(offset).
		Find(&roles).Error
	return roles, err
}

func (r *RoleRepo) Count(ctx context.Context, f listing.Filters) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Role{}).Scopes(applyFilters(f)).Count(&total).Error
	return total, err
}

// Seed 保证给定角色存在（按 name 去重，已存在则跳过）
func (r *RoleRepo) Seed(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	roles := make([]domain.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, domain.Role{Name: n})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&roles).Error
}
