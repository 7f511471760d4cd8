package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/partshub/partshub/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
}

func NewHandler(logger *slog.Logger, resolver *Resolver) *Handler {
	return &Handler{logger: logger, resolver: resolver}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/products/{id}", h.ShowProduct)
		r.Get("/services/{id}", h.ShowService)
	})
}

func (h *Handler) ShowProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "product id must be an integer")
		return
	}
	p, err := h.resolver.Product(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "show product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) ShowService(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "service id must be an integer")
		return
	}
	s, err := h.resolver.Service(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "show service", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	h.logger.Error(op+" failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
}
