package domain

import (
	"context"

	"go-gin-user-admin/internal/listing"
)

type Role struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;size:64;not null" json:"name"`
}

func (Role) TableName() string { return "roles" }

type RoleRepository interface {
	List(ctx context.Context, f listing.Filters, limit, offset int) ([]Role, error)
	Count(ctx context.Context, f listing.Filters) (int64, error)
}

var RoleFilterSchema = listing.Schema{
	{Param: "id", Column: "roles.id", Op: listing.OpEq, Kind: listing.KindInt},
	{Param: "name", Column: "roles.name", Op: listing.OpEq, Kind: listing.KindString},
}
