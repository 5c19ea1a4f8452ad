package service

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"go-gin-user-admin/internal/core/cache"
	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
)

type RoleService struct {
	repo  domain.RoleRepository
	cache *cache.Cache // nil 表示不缓存
	ttl   time.Duration
	log   *zap.Logger
}

func NewRoleService(repo domain.RoleRepository) *RoleService {
	return &RoleService{repo: repo, log: zap.NewNop()}
}

// WithCache 角色只读，列表结果可整页缓存
func (s *RoleService) WithCache(c *cache.Cache, ttl time.Duration, l *zap.Logger) *RoleService {
	s.cache, s.ttl = c, ttl
	if l != nil {
		s.log = l
	}
	return s
}

func (s *RoleService) List(ctx context.Context, values url.Values) (listing.Result[domain.Role], error) {
	q, err := resolve(values, domain.RoleFilterSchema)
	if err != nil {
		return listing.Result[domain.Role]{}, err
	}
	if s.cache == nil {
		return s.load(ctx, q)
	}

	key := fmt.Sprintf("roles:list:%s:%d:%d", q.Filters.Key(), q.Limit, q.Page)
	res, err := cache.GetOrLoadJSON(s.cache, ctx, key, s.ttl, func(ctx context.Context) (*listing.Result[domain.Role], error) {
		r, err := s.load(ctx, q)
		if err != nil {
			return nil, err
		}
		return &r, nil
	})
	if err != nil {
		return listing.Result[domain.Role]{}, err
	}
	if res == nil {
		s.log.Warn("role cache returned empty entry, reading through", zap.String("key", key))
		return s.load(ctx, q)
	}
	return *res, nil
}

func (s *RoleService) load(ctx context.Context, q listing.Query) (listing.Result[domain.Role], error) {
	var out listing.Result[domain.Role]
	roles, err := s.repo.List(ctx, q.Filters, q.Limit, q.Offset())
	if err != nil {
		return out, persistence("list roles", err)
	}
	total, err := s.repo.Count(ctx, q.CountFilters())
	if err != nil {
		return out, persistence("count roles", err)
	}
	page, err := q.Paginate(total)
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if roles == nil {
		roles = []domain.Role{}
	}
	out.Items, out.Page = roles, page
	return out, nil
}
