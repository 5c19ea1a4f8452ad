package handler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"go-gin-user-admin/internal/domain"
	"go-gin-user-admin/internal/listing"
	httpez "go-gin-user-admin/internal/transport/http/ez"
)

type RoleService interface {
	List(ctx context.Context, values url.Values) (listing.Result[domain.Role], error)
}

type RoleHandler struct{ svc RoleService }

func NewRoleHandler(svc RoleService) *RoleHandler { return &RoleHandler{svc: svc} }

func (h *RoleHandler) Priority() int { return 20 }

func (h *RoleHandler) Mount(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[struct{}, listing.Result[domain.Role]]{
		Method: http.MethodGet,
		Path:   "/roles",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (listing.Result[domain.Role], error) {
			return h.svc.List(c.Request.Context(), c.Request.URL.Query())
		},
	})
}
