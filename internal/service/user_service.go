package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
)

// Hasher 明文密码单向哈希
type Hasher interface {
	Hash(plain string) (string, error)
}

// DefaultRequiredFields 创建用户时必填
var DefaultRequiredFields = []string{"username", "password"}

type UserOptions struct {
	Projector      Projector
	RequiredFields []string // 允许：username / password / email / name / role_id
}

type UserService struct {
	repo     domain.UserRepository
	hasher   Hasher
	proj     Projector
	required []string
}

func NewUserService(repo domain.UserRepository, hasher Hasher, opts UserOptions) (*UserService, error) {
	req := opts.RequiredFields
	if len(req) == 0 {
		req = DefaultRequiredFields
	}
	for _, f := range req {
		switch f {
		case "username", "password", "email", "name", "role_id":
		default:
			return nil, fmt.Errorf("unknown required field %q", f)
		}
	}
	return &UserService{repo: repo, hasher: hasher, proj: opts.Projector, required: req}, nil
}

// List 分页列表；count 使用不含分页参数的过滤条件
func (s *UserService) List(ctx context.Context, values url.Values) (listing.Result[domain.UserListItem], error) {
	var out listing.Result[domain.UserListItem]
	q, err := resolve(values, domain.UserFilterSchema)
	if err != nil {
		return out, err
	}
	rows, err := s.repo.List(ctx, q.Filters, q.Limit, q.Offset())
	if err != nil {
		return out, persistence("list users", err)
	}
	total, err := s.repo.Count(ctx, q.CountFilters())
	if err != nil {
		return out, persistence("count users", err)
	}
	page, err := q.Paginate(total)
	if err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	out.Items = make([]domain.UserListItem, 0, len(rows))
	for _, r := range rows {
		out.Items = append(out.Items, s.proj.ListItem(r))
	}
	out.Page = page
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint64) (domain.UserDetail, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return domain.UserDetail{}, err
	}
	return s.proj.Detail(*u), nil
}

// Create 哈希失败直接返回，不会落库
func (s *UserService) Create(ctx context.Context, in domain.NewUser, imagePath string) (domain.UserRecord, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate(in); err != nil {
		return domain.UserRecord{}, err
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return domain.UserRecord{}, fmt.Errorf("create user: %w", err)
	}
	u := &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		Name:         in.Name,
		Image:        imagePath,
		PasswordHash: hash,
	}
	if in.RoleID != nil {
		u.RoleID = *in.RoleID
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.UserRecord{}, fmt.Errorf("create user %q: %w", in.Username, domain.ErrConflict)
		}
		return domain.UserRecord{}, persistence("insert user", err)
	}
	return u.Record(), nil
}

// Update 局部合并：只写 patch 中出现的字段；密码仅在非空时重新哈希
func (s *UserService) Update(ctx context.Context, id uint64, patch domain.UserPatch, imagePath string) (domain.UserRecord, error) {
	cur, err := s.load(ctx, id)
	if err != nil {
		return domain.UserRecord{}, err
	}
	if imagePath != "" {
		patch.Image = &imagePath
	}
	if patch.Password != nil && *patch.Password == "" {
		patch.Password = nil
	}

	cols := map[string]any{}
	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if name == "" {
			return domain.UserRecord{}, fmt.Errorf("%w: username must not be empty", domain.ErrValidation)
		}
		cols["username"] = name
	}
	if patch.Email != nil {
		cols["email"] = *patch.Email
	}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Image != nil {
		cols["image"] = *patch.Image
	}
	if patch.RoleID != nil {
		cols["role_id"] = *patch.RoleID
	}
	if patch.Password != nil {
		hash, err := s.hash(*patch.Password)
		if err != nil {
			return domain.UserRecord{}, fmt.Errorf("update user %d: %w", id, err)
		}
		cols["password"] = hash
	}
	if len(cols) == 0 {
		return cur.Record(), nil
	}

	if err := s.repo.Update(ctx, id, cols); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.UserRecord{}, fmt.Errorf("update user %d: %w", id, domain.ErrConflict)
		}
		return domain.UserRecord{}, persistence("update user", err)
	}
	merged, err := s.load(ctx, id)
	if err != nil {
		return domain.UserRecord{}, err
	}
	return merged.Record(), nil
}

// Delete 返回删除前的快照（不含密码哈希）
func (s *UserService) Delete(ctx context.Context, id uint64) (domain.UserRecord, error) {
	u, err := s.load(ctx, id)
	if err != nil {
		return domain.UserRecord{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return domain.UserRecord{}, persistence("delete user", err)
	}
	return u.Record(), nil
}

func (s *UserService) load(ctx context.Context, id uint64) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistence("find user", err)
	}
	if u == nil {
		return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

func (s *UserService) validate(in domain.NewUser) error {
	var missing []string
	for _, f := range s.required {
		var empty bool
		switch f {
		case "username":
			empty = in.Username == ""
		case "password":
			empty = in.Password == ""
		case "email":
			empty = strings.TrimSpace(in.Email) == ""
		case "name":
			empty = strings.TrimSpace(in.Name) == ""
		case "role_id":
			empty = in.RoleID == nil
		}
		if empty {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

// hash 超出 bcrypt 长度上限属于调用方输入错误
func (s *UserService) hash(plain string) (string, error) {
	h, err := s.hasher.Hash(plain)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	return h, err
}

func resolve(values url.Values, schema listing.Schema) (listing.Query, error) {
	q, err := listing.Resolve(values, schema)
	if err != nil {
		return q, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return q, nil
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistence, err)
}
