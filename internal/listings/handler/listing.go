package handler

import (
	"net/http"
	"strings"
	"time"
	bookingsvalidator "wanderlust/internal/bookings/validator"
	"wanderlust/internal/listings/service"
	apperrors "wanderlust/pkg/errors"
	httputil "wanderlust/pkg/http"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ListingHandler struct {
	service service.ListingService
	log     *logger.Logger
}

func NewListingHandler(service service.ListingService, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		service: service,
		log:     log,
	}
}

func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	checkIn, checkOut, guests, err := parseStayQuery(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	views, total, err := h.service.Search(r.Context(), model.ListingQuery{
		Where:    strings.TrimSpace(r.URL.Query().Get("where")),
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WritePaginated(w, views, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "Search", "operation", "WritePaginated", "error", err)
	}
}

func (h *ListingHandler) Show(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	checkIn, checkOut, guests, err := parseStayQuery(r)
	if err != nil {
		h.writeError(w, "Show", err)
		return
	}

	view, err := h.service.Show(r.Context(), ps.ByName("id"), checkIn, checkOut, guests)
	if err != nil {
		h.writeError(w, "Show", err)
		return
	}

	if err := httputil.WriteSuccess(w, view); err != nil {
		h.log.Error("failed to write success response", "handler", "Show", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ListingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/listings", h.Search)
	router.GET("/api/v1/listings/id/:id", h.Show)
}

func (h *ListingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
	}
}

// parseStayQuery reads check_in, check_out and guests. Dates are used only
// when both are present.
func parseStayQuery(r *http.Request) (*time.Time, *time.Time, int, error) {
	guests, err := httputil.QueryInt(r, "guests", 0)
	if err != nil {
		return nil, nil, 0, err
	}

	query := r.URL.Query()
	rawIn, rawOut := query.Get("check_in"), query.Get("check_out")
	if rawIn == "" || rawOut == "" {
		return nil, nil, int(guests), nil
	}
	in, out, err := bookingsvalidator.ParseStay(rawIn, rawOut)
	if err != nil {
		return nil, nil, 0, apperrors.InvalidDateRange("Invalid date range")
	}
	return &in, &out, int(guests), nil
}
