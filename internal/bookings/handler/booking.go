package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"wanderlust/internal/bookings/service"
	apperrors "wanderlust/pkg/errors"
	httputil "wanderlust/pkg/http"
	"wanderlust/pkg/logger"
	"wanderlust/pkg/middleware"
	"wanderlust/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
	// callbackGuard wraps the payment callbacks, normally with signature
	// verification. Without one, callbacks are accepted only from the
	// signed-in owner of the booking.
	callbackGuard func(http.Handler) http.Handler
}

func NewBookingHandler(service service.BookingService, log *logger.Logger, callbackGuard func(http.Handler) http.Handler) *BookingHandler {
	return &BookingHandler{
		service:       service,
		log:           log,
		callbackGuard: callbackGuard,
	}
}

type paymentCallback struct {
	BookingID string `json:"booking_id"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}
	req.ListingID = ps.ByName("id")
	if principal, ok := middleware.PrincipalFromContext(r.Context()); ok {
		req.UserID = principal.UserID
		req.GuestEmail = principal.Email
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking, "Booking created. Complete payment to confirm it."); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()
	avail, err := h.service.GetAvailability(r.Context(), ps.ByName("id"), query.Get("check_in"), query.Get("check_out"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, avail); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.ownedBooking(r, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	principal, _ := middleware.PrincipalFromContext(r.Context())
	bookings, total, err := h.service.ListByUser(r.Context(), principal.UserID, limit, offset)
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Pay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.ownedBooking(r, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Pay", err)
		return
	}

	checkout, err := h.service.Checkout(r.Context(), booking.ID)
	if err != nil {
		h.writeError(w, "Pay", err)
		return
	}

	if err := httputil.WriteSuccess(w, checkout); err != nil {
		h.log.Error("failed to write success response", "handler", "Pay", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.ownedBooking(r, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	booking, err = h.service.Cancel(r.Context(), booking.ID)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, booking, "Booking cancelled"); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccessMessage", "error", err)
	}
}

func (h *BookingHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	id, err := decodeCallback(r)
	if err != nil {
		h.writeError(w, "PaymentSuccess", err)
		return
	}
	if err := h.authorizeCallback(r, id); err != nil {
		h.writeError(w, "PaymentSuccess", err)
		return
	}

	booking, err := h.service.ConfirmPayment(r.Context(), id)
	if err != nil {
		h.writeError(w, "PaymentSuccess", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, booking, "Payment received. Your booking is confirmed."); err != nil {
		h.log.Error("failed to write success response", "handler", "PaymentSuccess", "operation", "WriteSuccessMessage", "error", err)
	}
}

func (h *BookingHandler) PaymentFailure(w http.ResponseWriter, r *http.Request) {
	id, err := decodeCallback(r)
	if err != nil {
		h.writeError(w, "PaymentFailure", err)
		return
	}
	if err := h.authorizeCallback(r, id); err != nil {
		h.writeError(w, "PaymentFailure", err)
		return
	}

	booking, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.writeError(w, "PaymentFailure", err)
		return
	}

	if err := httputil.WriteSuccessMessage(w, booking, "Payment failed. The booking was cancelled."); err != nil {
		h.log.Error("failed to write success response", "handler", "PaymentFailure", "operation", "WriteSuccessMessage", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/listings/id/:id/availability", h.Availability)
	router.POST("/api/v1/listings/id/:id/bookings", h.Create)

	router.GET("/api/v1/bookings", h.ListMine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/pay", h.Pay)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)

	router.Handler(http.MethodPost, "/api/v1/bookings/payment/success", h.guard(http.HandlerFunc(h.PaymentSuccess)))
	router.Handler(http.MethodPost, "/api/v1/bookings/payment/failure", h.guard(http.HandlerFunc(h.PaymentFailure)))
}

func (h *BookingHandler) guard(next http.Handler) http.Handler {
	if h.callbackGuard == nil {
		return next
	}
	return h.callbackGuard(next)
}

// ownedBooking loads a booking and hides bookings that belong to another
// signed-in user.
func (h *BookingHandler) ownedBooking(r *http.Request, id string) (*model.Booking, error) {
	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if booking.UserID == "" {
		return booking, nil
	}
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || principal.UserID != booking.UserID {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

// authorizeCallback admits unsigned callbacks only from the booking's owner.
// Anonymous bookings cannot be settled this way.
func (h *BookingHandler) authorizeCallback(r *http.Request, id string) error {
	if h.callbackGuard != nil {
		return nil
	}
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.Unauthorized("Sign in to complete this payment")
	}
	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		return err
	}
	if booking.UserID == "" || booking.UserID != principal.UserID {
		return apperrors.Forbidden("You do not have access to this booking")
	}
	return nil
}

func decodeCallback(r *http.Request) (string, error) {
	var cb paymentCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		return "", apperrors.InvalidInput("Invalid request body")
	}
	id := strings.TrimSpace(cb.BookingID)
	if id == "" {
		return "", apperrors.InvalidInput("booking_id is required")
	}
	return id, nil
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handlerName string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handlerName, "operation", "WriteError", "error", writeErr)
	}
}
