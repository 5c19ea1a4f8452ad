package service

import (
	"strings"

	"go-gin-user-admin/internal/domain"
)

// Projector 把存储记录转成对外视图；AssetBase 启动时注入，之后只读
type Projector struct {
	AssetBase string
}

// ImageURL {AssetBase}/{path}；未上传图片时返回空串
func (p Projector) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if p.AssetBase == "" {
		return path
	}
	return strings.TrimRight(p.AssetBase, "/") + "/" + strings.TrimLeft(path, "/")
}

func (p Projector) ListItem(r domain.UserRow) domain.UserListItem {
	return domain.UserListItem{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Name:      r.Name,
		Image:     p.ImageURL(r.Image),
		RoleID:    r.RoleID,
		RoleName:  r.RoleName,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (p Projector) Detail(u domain.User) domain.UserDetail {
	return domain.UserDetail{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Image:     p.ImageURL(u.Image),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
