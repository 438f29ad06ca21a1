// Package handler содержит HTTP-обработчики API сервиса погашения предложений.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-redemption/internal/metrics"
	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/repository"
	"github.com/mmeshcher/offer-redemption/internal/service"
	"github.com/mmeshcher/offer-redemption/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateOffer(ctx context.Context, in service.OfferInput) (*model.Offer, error)
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context) ([]model.Offer, error)
	ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]model.Offer, error)
	UpdateOffer(ctx context.Context, id string, patch service.OfferPatch) (*model.Offer, error)
	DeleteOffer(ctx context.Context, id string) error

	CreateRequest(ctx context.Context, userID, offerID string) (*model.RedeemOffer, error)
	Transition(ctx context.Context, id string, next model.RedeemStatus) (*model.RedeemOffer, error)
	MarkUsed(ctx context.Context, id string) (*model.RedeemOffer, error)
	Exists(ctx context.Context, userID, offerID string, status model.RedeemStatus) (bool, error)

	GetRequest(ctx context.Context, id string) (*model.RedeemOfferDetails, error)
	ListRequestsByUser(ctx context.Context, userID string) ([]model.RedeemOfferDetails, error)
	ListRequestsByOwner(ctx context.Context, ownerID string) ([]model.RedeemOfferDetails, error)
	ListRequestsByRestaurant(ctx context.Context, restaurantID string) ([]model.RedeemOfferDetails, error)
}

// Handler реализует HTTP-обработчики API сервиса погашения предложений.
type Handler struct {
	service Service
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: s,
		logger:  logger,
		metrics: m,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Message: msg})
}

// writeError переводит доменную ошибку в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		h.writeMessage(w, status, http.StatusText(status))
		return
	}
	if errors.Is(err, repository.ErrDuplicateRequest) {
		// Идентификаторы пары остаются только в журнале.
		h.logger.Info("duplicate redemption request", zap.Error(err))
		h.writeMessage(w, status, repository.ErrDuplicateRequest.Error())
		return
	}
	h.writeMessage(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, repository.ErrDuplicateRequest),
		errors.Is(err, model.ErrInvalidStatus),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrAlreadyUsed),
		errors.Is(err, model.ErrNotApproved):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrOfferNotFound),
		errors.Is(err, repository.ErrRedeemOfferNotFound),
		errors.Is(err, repository.ErrRestaurantNotFound),
		errors.Is(err, service.ErrRestaurantUnresolvable):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		h.writeMessage(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) requireID(w http.ResponseWriter, name, id string) bool {
	if id == "" {
		h.writeMessage(w, http.StatusBadRequest, name+" is required")
		return false
	}
	if !validation.IsValidID(id) {
		h.writeMessage(w, http.StatusBadRequest, "invalid "+name)
		return false
	}
	return true
}
