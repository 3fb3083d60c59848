package handler

import (
	"errors"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/routeledger/backend/api/transport"
	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/internal/infrastructure/blob"
	"github.com/routeledger/backend/pkg/httpcontext"
)

type ImageHandler struct {
	baseHandler
	store *blob.Store
}

func NewImageHandler(store *blob.Store, adapter *httpcontext.Adapter, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{
		baseHandler: newBaseHandler(adapter, logger),
		store:       store,
	}
}

// @Summary Serve a stored image blob
// @Tags images
// @Router /images/{name} [get]
func (h *ImageHandler) Serve(ctx *fasthttp.RequestCtx) {
	name, _ := ctx.UserValue("name").(string)
	if name == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing image name", nil))
		return
	}

	data, err := h.store.Get(name)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			h.respondJSON(ctx, http.StatusNotFound, transport.NewError(string(domain.ErrCodeNotFound), "image not found", nil))
			return
		}
		h.respondError(ctx, err)
		return
	}

	ctx.Response.Header.SetContentType("application/octet-stream")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(data)
}
