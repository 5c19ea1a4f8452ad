package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-user-admin/internal/core/storage"
	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
	httpez "go-gin-user-admin/internal/transport/http/ez"
)

type UserService interface {
	List(ctx context.Context, values url.Values) (listing.Result[domain.UserListItem], error)
	Get(ctx context.Context, id uint64) (domain.UserDetail, error)
	Create(ctx context.Context, in domain.NewUser, imagePath string) (domain.UserRecord, error)
	Update(ctx context.Context, id uint64, patch domain.UserPatch, imagePath string) (domain.UserRecord, error)
	Delete(ctx context.Context, id uint64) (domain.UserRecord, error)
}

// Uploader 图片上传；Save 返回存储的相对路径
type Uploader interface {
	Save(c *gin.Context, fh *multipart.FileHeader) (string, error)
	Remove(path string) error
}

type UserHandler struct {
	svc UserService
	up  Uploader
	log *zap.Logger
}

func NewUserHandler(svc UserService, up Uploader, l *zap.Logger) *UserHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserHandler{svc: svc, up: up, log: l}
}

func (h *UserHandler) Priority() int { return 10 }

type createUserIn struct {
	Username string  `json:"username" form:"username"`
	Email    string  `json:"email"    form:"email"`
	Name     string  `json:"name"     form:"name"`
	Password string  `json:"password" form:"password"`
	RoleID   *uint64 `json:"role_id"  form:"role_id"`
}

// 指针字段：未出现 = 不修改，出现（含空串）= 写入；password 为空串时忽略
type updateUserIn struct {
	Username *string `json:"username" form:"username"`
	Email    *string `json:"email"    form:"email"`
	Name     *string `json:"name"     form:"name"`
	Image    *string `json:"image"    form:"image"`
	Password *string `json:"password" form:"password"`
	RoleID   *uint64 `json:"role_id"  form:"role_id"`
}

func (h *UserHandler) Mount(e httpez.EZ) {
	// --- GET /users  列表（过滤 + 分页） ---
	httpez.RegisterAction(e, httpez.Action[struct{}, listing.Result[domain.UserListItem]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (listing.Result[domain.UserListItem], error) {
			return h.svc.List(c.Request.Context(), c.Request.URL.Query())
		},
	})

	// --- GET /users/:id ---
	httpez.RegisterAction(e, httpez.Action[struct{}, domain.UserDetail]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.UserDetail, error) {
			id, err := pathID(c)
			if err != nil {
				return domain.UserDetail{}, err
			}
			return h.svc.Get(c.Request.Context(), id)
		},
	})

	// --- POST /users  JSON / form / multipart(image) ---
	httpez.RegisterAction(e, httpez.Action[createUserIn, domain.UserRecord]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindAuto,
		Handler: func(c *gin.Context, in *createUserIn) (domain.UserRecord, error) {
			img, err := h.upload(c)
			if err != nil {
				return domain.UserRecord{}, err
			}
			rec, err := h.svc.Create(c.Request.Context(), domain.NewUser{
				Username: in.Username,
				Email:    in.Email,
				Name:     in.Name,
				Password: in.Password,
				RoleID:   in.RoleID,
			}, img)
			if err != nil {
				h.discard(img)
				return domain.UserRecord{}, err
			}
			h.log.Info("user created", zap.Uint64("id", rec.ID), zap.String("username", rec.Username))
			return rec, nil
		},
	})

	// --- PUT|PATCH /users/:id  局部更新 ---
	update := func(c *gin.Context, in *updateUserIn) (domain.UserRecord, error) {
		id, err := pathID(c)
		if err != nil {
			return domain.UserRecord{}, err
		}
		img, err := h.upload(c)
		if err != nil {
			return domain.UserRecord{}, err
		}
		// TODO: remove the previous image file once a replacement upload is persisted.
		rec, err := h.svc.Update(c.Request.Context(), id, domain.UserPatch{
			Username: in.Username,
			Email:    in.Email,
			Name:     in.Name,
			Image:    in.Image,
			Password: in.Password,
			RoleID:   in.RoleID,
		}, img)
		if err != nil {
			h.discard(img)
			return domain.UserRecord{}, err
		}
		h.log.Info("user updated", zap.Uint64("id", id), zap.Bool("password_rotated", in.Password != nil && *in.Password != ""))
		return rec, nil
	}
	for _, m := range []string{http.MethodPut, http.MethodPatch} {
		httpez.RegisterAction(e, httpez.Action[updateUserIn, domain.UserRecord]{
			Method:  m,
			Path:    "/users/:id",
			Binder:  httpez.BindAuto,
			Handler: update,
		})
	}

	// --- DELETE /users/:id  返回删除前快照 ---
	httpez.RegisterAction(e, httpez.Action[struct{}, domain.UserRecord]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (domain.UserRecord, error) {
			id, err := pathID(c)
			if err != nil {
				return domain.UserRecord{}, err
			}
			rec, err := h.svc.Delete(c.Request.Context(), id)
			if err != nil {
				return domain.UserRecord{}, err
			}
			h.log.Info("user deleted", zap.Uint64("id", id))
			return rec, nil
		},
	})
}

// upload 没有文件（或非 multipart 请求）时返回空串
func (h *UserHandler) upload(c *gin.Context) (string, error) {
	if h.up == nil {
		return "", nil
	}
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", httpez.BadRequest("invalid multipart form: " + err.Error())
	}
	p, err := h.up.Save(c, fh)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrTooLarge) {
			return "", httpez.BadRequest(err.Error())
		}
		return "", httpez.Internal("save upload failed", err)
	}
	return p, nil
}

func (h *UserHandler) discard(path string) {
	if path == "" || h.up == nil {
		return
	}
	if err := h.up.Remove(path); err != nil {
		h.log.Warn("remove orphan upload", zap.String("path", path), zap.Error(err))
	}
}

// pathID 非数字时 400；0 是合法数字，查不到由 service 返回 NotFound
func pathID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, httpez.BadRequest("invalid id")
	}
	return id, nil
}
