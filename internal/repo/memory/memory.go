// Package memory implements in-memory user and role repositories for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
)

// DB 内存存储，按 id 升序返回
type DB struct {
	mu     sync.Mutex
	users  map[uint64]domain.User
	roles  []domain.Role
	nextID uint64
	now    func() time.Time
}

func New(roles ...string) *DB {
	db := &DB{users: map[uint64]domain.User{}, now: time.Now}
	for i, n := range roles {
		db.roles = append(db.roles, domain.Role{ID: uint64(i + 1), Name: n})
	}
	return db
}

var (
	_ domain.UserRepository = (*DB)(nil)
	_ domain.RoleRepository = (*RoleRepo)(nil)
)

// Roles 同一份数据上的角色仓库视图
func (db *DB) Roles() *RoleRepo { return &RoleRepo{db: db} }

// --- UserRepository ---

func (db *DB) List(ctx context.Context, f listing.Filters, limit, offset int) ([]domain.UserRow, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	rows := db.matchUsers(f)
	return window(rows, limit, offset), nil
}

func (db *DB) Count(ctx context.Context, f listing.Filters) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return int64(len(db.matchUsers(f))), nil
}

func (db *DB) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (db *DB) Create(ctx context.Context, u *domain.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.usernameTaken(u.Username, 0) {
		return fmt.Errorf("%w: username %q", domain.ErrConflict, u.Username)
	}
	db.nextID++
	now := db.now().UTC()
	u.ID = db.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	db.users[u.ID] = *u
	return nil
}

func (db *DB) Update(ctx context.Context, id uint64, columns map[string]any) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	u, ok := db.users[id]
	if !ok || len(columns) == 0 {
		return nil
	}
	for col, v := range columns {
		switch col {
		case "username":
			name := v.(string)
			if db.usernameTaken(name, id) {
				return fmt.Errorf("%w: username %q", domain.ErrConflict, name)
			}
			u.Username = name
		case "email":
			u.Email = v.(string)
		case "name":
			u.Name = v.(string)
		case "image":
			u.Image = v.(string)
		case "role_id":
			u.RoleID = v.(uint64)
		case "password":
			u.PasswordHash = v.(string)
		default:
			return fmt.Errorf("memory: unknown column %q", col)
		}
	}
	u.UpdatedAt = db.now().UTC()
	db.users[id] = u
	return nil
}

func (db *DB) Delete(ctx context.Context, id uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.users, id)
	return nil
}

func (db *DB) usernameTaken(name string, except uint64) bool {
	for id, u := range db.users {
		if id != except && u.Username == name {
			return true
		}
	}
	return false
}

func (db *DB) roleName(id uint64) string {
	for _, r := range db.roles {
		if r.ID == id {
			return r.Name
		}
	}
	return ""
}

func (db *DB) matchUsers(f listing.Filters) []domain.UserRow {
	ids := make([]uint64, 0, len(db.users))
	for id := range db.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.UserRow
	for _, id := range ids {
		row := domain.UserRow{User: db.users[id], RoleName: db.roleName(db.users[id].RoleID)}
		if matches(f, func(col string) any { return userColumn(row, col) }) {
			out = append(out, row)
		}
	}
	return out
}

func userColumn(r domain.UserRow, col string) any {
	switch col {
	case "users.id":
		return int64(r.ID)
	case "users.username":
		return r.Username
	case "users.email":
		return r.Email
	case "users.name":
		return r.Name
	case "users.role_id":
		return int64(r.RoleID)
	case "roles.name":
		return r.RoleName
	case "users.created_at":
		return r.CreatedAt
	}
	return nil
}

// --- RoleRepository ---

type RoleRepo struct{ db *DB }

func (r *RoleRepo) List(ctx context.Context, f listing.Filters, limit, offset int) ([]domain.Role, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return window(r.match(f), limit, offset), nil
}

func (r *RoleRepo) Count(ctx context.Context, f listing.Filters) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return int64(len(r.match(f))), nil
}

func (r *RoleRepo) match(f listing.Filters) []domain.Role {
	var out []domain.Role
	for _, role := range r.db.roles {
		role := role
		ok := matches(f, func(col string) any {
			switch col {
			case "roles.id":
				return int64(role.ID)
			case "roles.name":
				return role.Name
			}
			return nil
		})
		if ok {
			out = append(out, role)
		}
	}
	return out
}

// --- helpers ---

func matches(f listing.Filters, get func(col string) any) bool {
	for _, c := range f {
		if !compare(get(c.Column), c.Op, c.Value) {
			return false
		}
	}
	return true
}

func compare(have any, op listing.Op, want any) bool {
	switch h := have.(type) {
	case string:
		w, ok := want.(string)
		return ok && op == listing.OpEq && h == w
	case int64:
		w, ok := want.(int64)
		if !ok {
			return false
		}
		switch op {
		case listing.OpGte:
			return h >= w
		case listing.OpLte:
			return h <= w
		}
		return h == w
	case time.Time:
		w, ok := want.(time.Time)
		if !ok {
			return false
		}
		switch op {
		case listing.OpGte:
			return !h.Before(w)
		case listing.OpLte:
			return !h.After(w)
		}
		return h.Equal(w)
	}
	return false
}

func window[T any](rows []T, limit, offset int) []T {
	if offset < 0 || limit <= 0 || offset >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit < end-offset {
		end = offset + limit
	}
	return append([]T(nil), rows[offset:end]...)
}
