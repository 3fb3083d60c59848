package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/routeledger/backend/api/transport"
	"github.com/routeledger/backend/domain"
	"github.com/routeledger/backend/pkg/httpcontext"
	"github.com/routeledger/backend/repository"
	routeUC "github.com/routeledger/backend/usecase/route"
)

type RouteHandler struct {
	baseHandler
	uc *routeUC.UseCase
}

func NewRouteHandler(uc *routeUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *RouteHandler {
	return &RouteHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List routes
// @Tags routes
// @Router /api/v1/routes [get]
func (h *RouteHandler) ListRoutes(ctx *fasthttp.RequestCtx) {
	filter := repository.RouteFilter{
		ProductID: parseInt64(string(ctx.QueryArgs().Peek("productId")), 0),
		Limit:     parseInt(string(ctx.QueryArgs().Peek("limit")), 50),
		Offset:    parseInt(string(ctx.QueryArgs().Peek("offset")), 0),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	routes, err := h.uc.ListRoutes(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, routes)
}

// @Summary Get route
// @Tags routes
// @Router /api/v1/routes/{id} [get]
func (h *RouteHandler) GetRoute(ctx *fasthttp.RequestCtx) {
	id, ok := h.routeID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	route, err := h.uc.GetRoute(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, route)
}

// @Summary Transfer a product between departments
// @Tags routes
// @Router /api/v1/routes/transfer [post]
func (h *RouteHandler) Transfer(ctx *fasthttp.RequestCtx) {
	form, ok := h.multipart(ctx)
	if !ok {
		return
	}

	image, fileName, err := formImage(form)
	if err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "unreadable image attachment", nil))
		return
	}

	in := routeUC.TransferInput{
		ProductID:      parseInt64(formValue(form, "productId"), 0),
		ToDepartmentID: parseInt64(formValue(form, "toDepartmentId"), 0),
		ToWorker:       formValue(form, "toWorker"),
		Notes:          formValue(form, "notes"),
		Image:          image,
		ImageFileName:  fileName,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	route, err := h.uc.Transfer(stdCtx, in)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, route)
}

// @Summary Remove a product from circulation
// @Tags routes
// @Router /api/v1/routes/remove [post]
func (h *RouteHandler) Remove(ctx *fasthttp.RequestCtx) {
	form, ok := h.multipart(ctx)
	if !ok {
		return
	}

	image, fileName, err := formImage(form)
	if err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "unreadable image attachment", nil))
		return
	}

	in := routeUC.RemoveInput{
		ProductID:     parseInt64(formValue(form, "productId"), 0),
		FromWorker:    formValue(form, "fromWorker"),
		Reason:        formValue(form, "reason"),
		Image:         image,
		ImageFileName: fileName,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	route, err := h.uc.Remove(stdCtx, in)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, route)
}

// @Summary Update route notes or image
// @Tags routes
// @Router /api/v1/routes/{id} [put]
func (h *RouteHandler) UpdateRoute(ctx *fasthttp.RequestCtx) {
	id, ok := h.routeID(ctx)
	if !ok {
		return
	}
	form, ok := h.multipart(ctx)
	if !ok {
		return
	}

	image, fileName, err := formImage(form)
	if err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "unreadable image attachment", nil))
		return
	}

	in := routeUC.UpdateInput{
		RouteID:       id,
		Image:         image,
		ImageFileName: fileName,
	}
	if values, exists := form.Value["notes"]; exists && len(values) > 0 {
		in.Notes = &values[0]
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Update(stdCtx, in); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Mark a route completed
// @Tags routes
// @Router /api/v1/routes/{id}/complete [put]
func (h *RouteHandler) CompleteRoute(ctx *fasthttp.RequestCtx) {
	id, ok := h.routeID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Complete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Hard-delete a route
// @Tags routes
// @Router /api/v1/routes/{id} [delete]
func (h *RouteHandler) DeleteRoute(ctx *fasthttp.RequestCtx) {
	id, ok := h.routeID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Delete(stdCtx, id); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Delete a route and roll the product back to its previous state
// @Tags routes
// @Router /api/v1/routes/{id}/rollback [delete]
func (h *RouteHandler) RollbackRoute(ctx *fasthttp.RequestCtx) {
	id, ok := h.routeID(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	message, err := h.uc.DeleteWithRollback(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.RollbackResponse{Message: message})
}

// @Summary Hard-delete multiple routes
// @Tags routes
// @Router /api/v1/routes/batch-delete [post]
func (h *RouteHandler) BatchDelete(ctx *fasthttp.RequestCtx) {
	var req transport.BatchDeleteRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}
	if len(req.RouteIDs) == 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "routeIds must not be empty", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result := h.uc.BatchDelete(stdCtx, req.RouteIDs)
	h.respondSuccess(ctx, http.StatusOK, result)
}

func (h *RouteHandler) routeID(ctx *fasthttp.RequestCtx) (int64, bool) {
	raw, _ := ctx.UserValue("id").(string)
	id := parseInt64(raw, 0)
	if id <= 0 {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing or invalid route id", nil))
		return 0, false
	}
	return id, true
}

func (h *RouteHandler) multipart(ctx *fasthttp.RequestCtx) (*multipart.Form, bool) {
	form, err := ctx.MultipartForm()
	if err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "expected multipart form", nil))
		return nil, false
	}
	return form, true
}

func formValue(form *multipart.Form, name string) string {
	if values, ok := form.Value[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

func formImage(form *multipart.Form) ([]byte, string, error) {
	files, ok := form.File["image"]
	if !ok || len(files) == 0 {
		return nil, "", nil
	}
	header := files[0]
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func parseInt64(value string, fallback int64) int64 {
	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return v
	}
	return fallback
}
