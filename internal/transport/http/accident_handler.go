package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "baaccli/internal/errors"
	"baaccli/internal/middleware"
	"baaccli/internal/services"
	"baaccli/pkg/contracts/domain"
)

// AccidentServiceInterface defines the read operations the handler needs
type AccidentServiceInterface interface {
	Years(ctx context.Context) ([]services.YearCount, error)
	Accidents(ctx context.Context, year, limit int) (*services.AccidentPage, error)
	Accident(ctx context.Context, id string) (*domain.AccidentDocument, error)
}

// DefaultPageSize applies when the limit parameter is absent.
const DefaultPageSize = 100

// AccidentHandler handles accident queries
type AccidentHandler struct {
	service     AccidentServiceInterface
	maxPageSize int
	logger      *slog.Logger
}

// NewAccidentHandler creates a new accident handler. maxPageSize caps the
// limit parameter.
func NewAccidentHandler(service AccidentServiceInterface, maxPageSize int, logger *slog.Logger) *AccidentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPageSize <= 0 {
		maxPageSize = DefaultPageSize
	}
	return &AccidentHandler{
		service:     service,
		maxPageSize: maxPageSize,
		logger:      logger.With(slog.String("handler", "accidents")),
	}
}

// Years handles GET /api/years
func (h *AccidentHandler) Years(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.Years(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{"years": years})
}

// List handles GET /api/accidents?year=&limit=
func (h *AccidentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		h.fail(w, r, apierrors.InvalidParameter("year", fmt.Errorf("year is required and must be an integer")))
		return
	}

	limit := DefaultPageSize
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.fail(w, r, apierrors.InvalidParameter("limit", fmt.Errorf("limit must be a positive integer")))
			return
		}
	}
	if limit > h.maxPageSize {
		limit = h.maxPageSize
	}

	page, err := h.service.Accidents(r.Context(), year, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, page)
}

// Get handles GET /api/accidents/{id}
func (h *AccidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Accident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, doc)
}

func (h *AccidentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierrors.FromError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	_ = render.Render(w, r, apierrors.NewErrorResponse(apiErr))
}
