package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-gin-user-admin/internal/core/storage"
	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
	httpez "go-gin-user-admin/internal/transport/http/ez"
)

type fakeUsers struct {
	create func(domain.NewUser, string) (domain.UserRecord, error)
	update func(uint64, domain.UserPatch, string) (domain.UserRecord, error)
	list   func(url.Values) (listing.Result[domain.UserListItem], error)
}

func (f *fakeUsers) List(_ context.Context, v url.Values) (listing.Result[domain.UserListItem], error) {
	return f.list(v)
}
func (f *fakeUsers) Get(_ context.Context, id uint64) (domain.UserDetail, error) {
	return domain.UserDetail{ID: id}, nil
}
func (f *fakeUsers) Create(_ context.Context, in domain.NewUser, img string) (domain.UserRecord, error) {
	return f.create(in, img)
}
func (f *fakeUsers) Update(_ context.Context, id uint64, p domain.UserPatch, img string) (domain.UserRecord, error) {
	return f.update(id, p, img)
}
func (f *fakeUsers) Delete(_ context.Context, id uint64) (domain.UserRecord, error) {
	return domain.UserRecord{ID: id}, nil
}

type fakeUploader struct {
	saveErr error
	saved   []string
	removed []string
}

func (u *fakeUploader) Save(_ *gin.Context, fh *multipart.FileHeader) (string, error) {
	if u.saveErr != nil {
		return "", u.saveErr
	}
	p := "uploads/" + fh.Filename
	u.saved = append(u.saved, p)
	return p, nil
}

func (u *fakeUploader) Remove(p string) error {
	u.removed = append(u.removed, p)
	return nil
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func mount(svc UserService, up Uploader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewUserHandler(svc, up, zap.NewNop()).Mount(httpez.New(r.Group(""), zap.NewNop()))
	return r
}

func send(t *testing.T, r *gin.Engine, req *http.Request) envelope {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func multipartReq(t *testing.T, method, target string, fields map[string]string, file string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != "" {
		fw, err := mw.CreateFormFile("image", file)
		require.NoError(t, err)
		_, err = fw.Write([]byte("img"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreate_PassesUploadPath(t *testing.T) {
	var gotImg string
	var gotIn domain.NewUser
	svc := &fakeUsers{create: func(in domain.NewUser, img string) (domain.UserRecord, error) {
		gotIn, gotImg = in, img
		return domain.UserRecord{ID: 1, Username: in.Username, Image: img}, nil
	}}
	up := &fakeUploader{}
	r := mount(svc, up)

	env := send(t, r, multipartReq(t, http.MethodPost, "/users", map[string]string{
		"username": "alice", "password": "pw", "role_id": "3",
	}, "a.png"))
	require.Equal(t, 0, env.Code, env.Msg)
	assert.Equal(t, "uploads/a.png", gotImg)
	assert.Equal(t, "alice", gotIn.Username)
	require.NotNil(t, gotIn.RoleID)
	assert.Equal(t, uint64(3), *gotIn.RoleID)
	assert.Empty(t, up.removed)
}

func TestCreate_DiscardsUploadOnFailure(t *testing.T) {
	svc := &fakeUsers{create: func(domain.NewUser, string) (domain.UserRecord, error) {
		return domain.UserRecord{}, domain.ErrConflict
	}}
	up := &fakeUploader{}
	r := mount(svc, up)

	env := send(t, r, multipartReq(t, http.MethodPost, "/users", map[string]string{"username": "alice"}, "a.png"))
	assert.Equal(t, 409, env.Code)
	assert.Equal(t, []string{"uploads/a.png"}, up.removed)
}

func TestCreate_UploadErrors(t *testing.T) {
	called := false
	svc := &fakeUsers{create: func(domain.NewUser, string) (domain.UserRecord, error) {
		called = true
		return domain.UserRecord{}, nil
	}}

	env := send(t, mount(svc, &fakeUploader{saveErr: storage.ErrNotImage}),
		multipartReq(t, http.MethodPost, "/users", map[string]string{"username": "a"}, "a.sh"))
	assert.Equal(t, 400, env.Code)

	env = send(t, mount(svc, &fakeUploader{saveErr: errors.New("disk full")}),
		multipartReq(t, http.MethodPost, "/users", map[string]string{"username": "a"}, "a.png"))
	assert.Equal(t, 500, env.Code)
	assert.Equal(t, "save upload failed", env.Msg)
	assert.False(t, called)
}

func TestUpdate_PresenceAwareJSON(t *testing.T) {
	var got domain.UserPatch
	svc := &fakeUsers{update: func(id uint64, p domain.UserPatch, img string) (domain.UserRecord, error) {
		got = p
		return domain.UserRecord{ID: id}, nil
	}}
	r := mount(svc, &fakeUploader{})

	for _, m := range []string{http.MethodPut, http.MethodPatch} {
		got = domain.UserPatch{}
		req := httptest.NewRequest(m, "/users/7", strings.NewReader(`{"email":"","name":null}`))
		req.Header.Set("Content-Type", "application/json")
		env := send(t, r, req)
		require.Equal(t, 0, env.Code, env.Msg)

		require.NotNil(t, got.Email, m)
		assert.Equal(t, "", *got.Email)
		assert.Nil(t, got.Name, "null counts as omitted")
		assert.Nil(t, got.Username)
		assert.Nil(t, got.Password)
	}
}

func TestUpdate_MultipartImageAndInvalidID(t *testing.T) {
	var gotImg string
	svc := &fakeUsers{update: func(id uint64, p domain.UserPatch, img string) (domain.UserRecord, error) {
		gotImg = img
		return domain.UserRecord{ID: id, Image: img}, nil
	}}
	r := mount(svc, &fakeUploader{})

	env := send(t, r, multipartReq(t, http.MethodPatch, "/users/7", map[string]string{"name": "x"}, "b.webp"))
	require.Equal(t, 0, env.Code, env.Msg)
	assert.Equal(t, "uploads/b.webp", gotImg)

	env = send(t, r, multipartReq(t, http.MethodPatch, "/users/x", nil, ""))
	assert.Equal(t, 400, env.Code)
	assert.Equal(t, "invalid id", env.Msg)
}

func TestList_PaginatedEnvelope(t *testing.T) {
	svc := &fakeUsers{list: func(v url.Values) (listing.Result[domain.UserListItem], error) {
		assert.Equal(t, "alice", v.Get("username"))
		return listing.Result[domain.UserListItem]{
			Items: []domain.UserListItem{{ID: 1, Username: "alice"}},
			Page:  listing.Page{TotalItems: 1, TotalPages: 1, Page: 1, Limit: 100},
		}, nil
	}}
	r := mount(svc, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?username=alice", nil))
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.EqualValues(t, 0, out["code"])
	assert.Len(t, out["data"], 1)
	assert.Contains(t, out, "pagination")
}
