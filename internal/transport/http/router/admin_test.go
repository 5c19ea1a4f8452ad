package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-user-admin/internal/core/storage"
	"go-gin-user-admin/internal/repo/memory"
	"go-gin-user-admin/internal/service"
	"go-gin-user-admin/internal/transport/http/handler"
	httpez "go-gin-user-admin/internal/transport/http/ez"
	"go-gin-user-admin/pkg/utils"
)

const assetBase = "http://cdn.test/static"

type envelope struct {
	Code       int             `json:"code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		TotalItems int64 `json:"total_items"`
		TotalPages int   `json:"total_pages"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
	} `json:"pagination"`
}

type userJSON struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	RoleID   uint64 `json:"role_id"`
	RoleName string `json:"role_name"`
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memory.New("admin", "user")
	users, err := service.NewUserService(db, utils.Bcrypt{Cost: 4}, service.UserOptions{
		Projector: service.Projector{AssetBase: assetBase},
	})
	require.NoError(t, err)
	roles := service.NewRoleService(db.Roles())
	dir := filepath.Join(t.TempDir(), "uploads")

	l := zap.NewNop()
	return NewAdminEngine(l, Options{
		RPS: 1000, Burst: 1000, Concurrency: 10, MaxBodyBytes: 1 << 20,
		Timeout: 5 * time.Second, StaticDir: dir,
	}, handler.NewRoleHandler(roles), handler.NewUserHandler(users, storage.Local{Dir: dir, MaxBytes: 1 << 20}, l))
}

func call(t *testing.T, r http.Handler, method, target string, body any) envelope {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return serve(t, r, req)
}

func serve(t *testing.T, r http.Handler, req *http.Request) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func dataAs[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestAdmin_Health(t *testing.T) {
	r := newEngine(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":1}`, w.Body.String())
}

func TestAdmin_UserLifecycle(t *testing.T) {
	r := newEngine(t)

	env := call(t, r, http.MethodPost, "/admin/v1/users", gin.H{
		"username": "alice", "password": "s3cret", "email": "alice@example.com", "role_id": 1,
	})
	require.Equal(t, 0, env.Code, env.Msg)
	assert.NotContains(t, string(env.Data), "password")
	alice := dataAs[userJSON](t, env)
	assert.Equal(t, uint64(1), alice.ID)
	assert.Equal(t, "alice@example.com", alice.Email)

	env = call(t, r, http.MethodPost, "/admin/v1/users", gin.H{"username": "bob", "password": "pw", "role_id": 2})
	require.Equal(t, 0, env.Code, env.Msg)

	// 列表：分页 + 角色名
	env = call(t, r, http.MethodGet, "/admin/v1/users?limit=1&page=1", nil)
	require.Equal(t, 0, env.Code, env.Msg)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(2), env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 1, env.Pagination.Limit)
	items := dataAs[[]userJSON](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Username)
	assert.Equal(t, "admin", items[0].RoleName)

	env = call(t, r, http.MethodGet, "/admin/v1/users?role_name=user", nil)
	require.Equal(t, 0, env.Code, env.Msg)
	items = dataAs[[]userJSON](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].Username)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	// 局部更新只改出现的字段
	env = call(t, r, http.MethodPatch, "/admin/v1/users/1", gin.H{"name": "Alice"})
	require.Equal(t, 0, env.Code, env.Msg)
	updated := dataAs[userJSON](t, env)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "alice@example.com", updated.Email)
	assert.NotContains(t, string(env.Data), "password")

	env = call(t, r, http.MethodGet, "/admin/v1/users/1", nil)
	require.Equal(t, 0, env.Code, env.Msg)
	assert.NotContains(t, string(env.Data), "role_id")
	assert.Equal(t, "Alice", dataAs[userJSON](t, env).Name)

	// 删除返回删除前快照
	env = call(t, r, http.MethodDelete, "/admin/v1/users/1", nil)
	require.Equal(t, 0, env.Code, env.Msg)
	assert.Equal(t, "Alice", dataAs[userJSON](t, env).Name)

	env = call(t, r, http.MethodGet, "/admin/v1/users/1", nil)
	assert.Equal(t, 404, env.Code)
	env = call(t, r, http.MethodDelete, "/admin/v1/users/1", nil)
	assert.Equal(t, 404, env.Code)
}

func TestAdmin_ErrorCodes(t *testing.T) {
	r := newEngine(t)
	require.Equal(t, 0, call(t, r, http.MethodPost, "/admin/v1/users", gin.H{"username": "alice", "password": "pw"}).Code)

	cases := []struct {
		name         string
		method, path string
		body         any
		code         int
	}{
		{"duplicate username", http.MethodPost, "/admin/v1/users", gin.H{"username": "alice", "password": "pw"}, 409},
		{"missing password", http.MethodPost, "/admin/v1/users", gin.H{"username": "carol"}, 400},
		{"bad json", http.MethodPost, "/admin/v1/users", "not-an-object", 400},
		{"invalid id", http.MethodGet, "/admin/v1/users/abc", nil, 400},
		{"negative id", http.MethodGet, "/admin/v1/users/-1", nil, 400},
		{"zero id", http.MethodGet, "/admin/v1/users/0", nil, 404},
		{"delete zero id", http.MethodDelete, "/admin/v1/users/0", nil, 404},
		{"update zero id", http.MethodPatch, "/admin/v1/users/0", gin.H{"name": "x"}, 404},
		{"overlong password", http.MethodPost, "/admin/v1/users", gin.H{"username": "dave", "password": strings.Repeat("p", 73)}, 400},
		{"page overflows offset", http.MethodGet, "/admin/v1/users?limit=2&page=4611686018427387905", nil, 400},
		{"huge limit", http.MethodGet, "/admin/v1/users?limit=9223372036854775807", nil, 0},
		{"unknown id", http.MethodGet, "/admin/v1/users/99", nil, 404},
		{"update unknown", http.MethodPut, "/admin/v1/users/99", gin.H{"name": "x"}, 404},
		{"empty username", http.MethodPatch, "/admin/v1/users/1", gin.H{"username": ""}, 400},
		{"zero limit", http.MethodGet, "/admin/v1/users?limit=0", nil, 400},
		{"negative page", http.MethodGet, "/admin/v1/roles?page=-1", nil, 400},
		{"bad typed filter", http.MethodGet, "/admin/v1/users?role_id=abc", nil, 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := call(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.code, env.Code, env.Msg)
		})
	}
}

func TestAdmin_MultipartImage(t *testing.T) {
	r := newEngine(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("username", "dora"))
	require.NoError(t, mw.WriteField("password", "pw"))
	require.NoError(t, mw.WriteField("role_id", "2"))
	fw, err := mw.CreateFormFile("image", "face.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/users", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	env := serve(t, r, req)
	require.Equal(t, 0, env.Code, env.Msg)
	created := dataAs[userJSON](t, env)
	assert.Equal(t, uint64(2), created.RoleID)
	assert.True(t, strings.HasSuffix(created.Image, ".png"))
	assert.False(t, strings.HasPrefix(created.Image, "http"), "create returns the stored path")

	env = call(t, r, http.MethodGet, fmt.Sprintf("/admin/v1/users/%d", created.ID), nil)
	require.Equal(t, 0, env.Code, env.Msg)
	got := dataAs[userJSON](t, env)
	assert.Equal(t, assetBase+"/"+strings.TrimLeft(created.Image, "/"), got.Image)

	// 上传目录通过 /static 对外提供
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(got.Image, "http://cdn.test"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png-bytes", w.Body.String())
}

func TestAdmin_RejectsNonImageUpload(t *testing.T) {
	r := newEngine(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("username", "eve"))
	require.NoError(t, mw.WriteField("password", "pw"))
	fw, err := mw.CreateFormFile("image", "run.sh")
	require.NoError(t, err)
	_, err = fw.Write([]byte("#!/bin/sh"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/v1/users", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	assert.Equal(t, 400, serve(t, r, req).Code)

	env := call(t, r, http.MethodGet, "/admin/v1/users", nil)
	assert.Equal(t, int64(0), env.Pagination.TotalItems)
}

func TestAdmin_Roles(t *testing.T) {
	r := newEngine(t)
	env := call(t, r, http.MethodGet, "/admin/v1/roles?limit=1&page=2", nil)
	require.Equal(t, 0, env.Code, env.Msg)
	roles := dataAs[[]struct {
		ID   uint64 `json:"id"`
		Name string `json:"name"`
	}](t, env)
	require.Len(t, roles, 1)
	assert.Equal(t, "user", roles[0].Name)
	assert.Equal(t, int64(2), env.Pagination.TotalItems)
	assert.Equal(t, 2, env.Pagination.TotalPages)
}

type orderMod struct {
	name  string
	prio  int
	trace *[]string
}

func (m orderMod) Priority() int     { return m.prio }
func (m orderMod) Mount(e httpez.EZ) { *m.trace = append(*m.trace, m.name) }

type plainMod struct{ trace *[]string }

func (m plainMod) Mount(e httpez.EZ) { *m.trace = append(*m.trace, "plain") }

func TestMountAll_Priority(t *testing.T) {
	var trace []string
	mods := []Module{plainMod{&trace}, orderMod{"late", 200, &trace}, orderMod{"early", 1, &trace}}
	MountAll(httpez.EZ{}, mods...)
	assert.Equal(t, []string{"early", "plain", "late"}, trace)
	_, isPlain := mods[0].(plainMod)
	assert.True(t, isPlain, "input order untouched")
}
