package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

// Handler exposes the read-only ledger listing.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, limit := shared.ParsePageQuery(r)

	filter := ListFilter{Limit: limit, Offset: (page - 1) * limit}
	if t := r.URL.Query().Get("type"); t != "" {
		tt := TransactionType(t)
		filter.Type = &tt
	}
	if s := r.URL.Query().Get("sku"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			filter.SKUID = &id
		}
	}

	entries, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	pg := shared.NewPagination(page, limit, total)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions":      entries,
		"currentPage":       pg.Page,
		"totalPages":        pg.TotalPages,
		"totalTransactions": pg.Total,
	})
}
