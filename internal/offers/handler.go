package offers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/partshub/partshub/internal/platform/httpx"
)

// DocumentRenderer produces the customer-facing offer document.
type DocumentRenderer interface {
	RenderOffer(ctx context.Context, offer *Offer) ([]byte, error)
}

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	renderer DocumentRenderer
}

func NewHandler(logger *slog.Logger, service *Service, renderer DocumentRenderer) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		renderer: renderer,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	offer, err := h.service.Create(r.Context(), req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "create offer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, offer)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListOffersRequest{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("number"); v != "" {
		offer, err := h.service.GetByNumber(r.Context(), v)
		if err != nil {
			h.respondError(w, r, "get offer by number", err)
			return
		}
		httpx.JSON(w, http.StatusOK, offer)
		return
	}
	if v := q.Get("status"); v != "" {
		status := OfferStatus(v)
		req.Status = &status
	}
	if v := q.Get("q"); v != "" {
		req.Query = &v
	}
	if v := q.Get("date_from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			req.DateFrom = &ts
		}
	}
	if v := q.Get("date_to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			req.DateTo = &ts
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			req.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	offers, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list offers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"offers": offers,
		"total":  total,
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	offer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get offer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateOfferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	offer, err := h.service.UpdateHeader(r.Context(), id, req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "update offer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, "delete offer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	offer, err := h.service.AddItem(r.Context(), id, req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "add item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, offer)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.paramID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	offer, err := h.service.UpdateItem(r.Context(), id, itemID, req, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.paramID(w, r, "itemID")
	if !ok {
		return
	}
	offer, err := h.service.RemoveItem(r.Context(), id, itemID, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "remove item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req ReorderItemsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	offer, err := h.service.ReorderItems(r.Context(), id, req.ItemIDs, actorFrom(r))
	if err != nil {
		h.respondError(w, r, "reorder items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req AddNoteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AddNote(r.Context(), id, req.Note, actorFrom(r)); err != nil {
		h.respondError(w, r, "add note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id int64, req TransitionRequest) (*Offer, error) {
		return h.service.Activate(ctx, id, req, actorFrom(r))
	})
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id int64, _ TransitionRequest) (*Offer, error) {
		return h.service.Accept(ctx, id, actorFrom(r))
	})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id int64, _ TransitionRequest) (*Offer, error) {
		return h.service.Complete(ctx, id, actorFrom(r))
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id int64, req TransitionRequest) (*Offer, error) {
		return h.service.Cancel(ctx, id, req, actorFrom(r))
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "offer history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"history": entries})
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	offer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get offer", err)
		return
	}
	pdf, err := h.renderer.RenderOffer(r.Context(), offer)
	if err != nil {
		h.logger.Error("render offer document", slog.Int64("offer_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "document rendering is unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+offer.OfferNumber+`.pdf"`)
	_, _ = w.Write(pdf)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64, TransitionRequest) (*Offer, error)) {
	id, ok := h.paramID(w, r, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
	}
	offer, err := fn(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, "transition offer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, offer)
}

func (h *Handler) paramID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path id must be a positive integer")
		return 0, false
	}
	return id, true
}

// respondError maps the offer error taxonomy onto HTTP statuses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrOfferNotMutable):
		httpx.Problem(w, http.StatusConflict, "Offer Not Mutable", err.Error())
	case errors.Is(err, ErrConcurrentModification):
		httpx.Problem(w, http.StatusConflict, "Concurrent Modification", "the offer was just changed by someone else, please reload")
	case errors.Is(err, ErrIncompleteOrdering):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Incomplete Ordering", err.Error())
	case errors.Is(err, ErrReservationFailure):
		httpx.Problem(w, http.StatusBadGateway, "Reservation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// actorFrom reads the acting staff identity from request headers set by the
// fronting gateway. Falls back to the anonymous actor.
func actorFrom(r *http.Request) Actor {
	var actor Actor
	if v := r.Header.Get("X-Actor-ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			actor.ID = id
		}
	}
	actor.Name = r.Header.Get("X-Actor-Name")
	return actor
}
