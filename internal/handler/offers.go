package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/service"
)

type offerRequest struct {
	Title            string          `json:"title" validate:"required"`
	Description      string          `json:"description"`
	OfferType        string          `json:"offer_type"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	RestaurantIDs    []string        `json:"restaurant_ids" validate:"required,min=1,dive,id"`
	ValidFrom        *time.Time      `json:"valid_from"`
	ValidTo          *time.Time      `json:"valid_to"`
	RequiresApproval bool            `json:"requires_approval"`
	MinOrderValue    decimal.Decimal `json:"min_order_value"`
	MaxRedemptions   int             `json:"max_redemptions" validate:"gte=0"`
	PaymentRequired  bool            `json:"payment_required"`
	ImageURL         string          `json:"image_url" validate:"required"`
}

type offerPatchRequest struct {
	Title            *string          `json:"title" validate:"omitnil,min=1"`
	Description      *string          `json:"description"`
	OfferType        *string          `json:"offer_type"`
	DiscountValue    *decimal.Decimal `json:"discount_value"`
	RestaurantIDs    *[]string        `json:"restaurant_ids" validate:"omitnil,min=1,dive,id"`
	ValidFrom        *time.Time       `json:"valid_from"`
	ValidTo          *time.Time       `json:"valid_to"`
	RequiresApproval *bool            `json:"requires_approval"`
	MinOrderValue    *decimal.Decimal `json:"min_order_value"`
	MaxRedemptions   *int             `json:"max_redemptions" validate:"omitnil,gte=0"`
	PaymentRequired  *bool            `json:"payment_required"`
	ImageURL         *string          `json:"image_url" validate:"omitnil,min=1"`
	Status           *string          `json:"status" validate:"omitnil,oneof=Active Inactive"`
}

type offerResponse struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	OfferType        string          `json:"offer_type"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	RestaurantIDs    []string        `json:"restaurant_ids"`
	ValidFrom        *time.Time      `json:"valid_from,omitempty"`
	ValidTo          *time.Time      `json:"valid_to,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	MinOrderValue    decimal.Decimal `json:"min_order_value"`
	MaxRedemptions   int             `json:"max_redemptions"`
	PaymentRequired  bool            `json:"payment_required"`
	ImageURL         string          `json:"image_url"`
	Status           string          `json:"status"`
	CreatedAt        string          `json:"created_at"`
}

func newOfferResponse(o *model.Offer) offerResponse {
	return offerResponse{
		ID:               o.ID,
		Title:            o.Title,
		Description:      o.Description,
		OfferType:        o.OfferType,
		DiscountValue:    o.DiscountValue,
		RestaurantIDs:    o.RestaurantIDs,
		ValidFrom:        o.ValidFrom,
		ValidTo:          o.ValidTo,
		RequiresApproval: o.RequiresApproval,
		MinOrderValue:    o.MinOrderValue,
		MaxRedemptions:   o.MaxRedemptions,
		PaymentRequired:  o.PaymentRequired,
		ImageURL:         o.ImageURL,
		Status:           string(o.Status),
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
	}
}

func newOfferList(offers []model.Offer) []offerResponse {
	resp := make([]offerResponse, 0, len(offers))
	for i := range offers {
		resp = append(resp, newOfferResponse(&offers[i]))
	}
	return resp
}

// CreateOffer создаёт новое предложение.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.CreateOffer(r.Context(), service.OfferInput{
		Title:            req.Title,
		Description:      req.Description,
		OfferType:        req.OfferType,
		DiscountValue:    req.DiscountValue,
		RestaurantIDs:    req.RestaurantIDs,
		ValidFrom:        req.ValidFrom,
		ValidTo:          req.ValidTo,
		RequiresApproval: req.RequiresApproval,
		MinOrderValue:    req.MinOrderValue,
		MaxRedemptions:   req.MaxRedemptions,
		PaymentRequired:  req.PaymentRequired,
		ImageURL:         req.ImageURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newOfferResponse(o))
}

// ListOffers возвращает все предложения.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.service.ListOffers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOfferList(offers))
}

// ListOffersByRestaurant возвращает предложения ресторана.
func (h *Handler) ListOffersByRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "restaurantID")
	if !h.requireID(w, "restaurant_id", restaurantID) {
		return
	}

	offers, err := h.service.ListOffersByRestaurant(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOfferList(offers))
}

// GetOffer возвращает предложение по идентификатору.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireID(w, "offer id", id) {
		return
	}

	o, err := h.service.GetOffer(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOfferResponse(o))
}

// UpdateOffer применяет частичное изменение к предложению.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireID(w, "offer id", id) {
		return
	}

	var req offerPatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	patch := service.OfferPatch{
		Title:            req.Title,
		Description:      req.Description,
		OfferType:        req.OfferType,
		DiscountValue:    req.DiscountValue,
		RestaurantIDs:    req.RestaurantIDs,
		ValidFrom:        req.ValidFrom,
		ValidTo:          req.ValidTo,
		RequiresApproval: req.RequiresApproval,
		MinOrderValue:    req.MinOrderValue,
		MaxRedemptions:   req.MaxRedemptions,
		PaymentRequired:  req.PaymentRequired,
		ImageURL:         req.ImageURL,
	}
	if req.Status != nil {
		st := model.OfferStatus(*req.Status)
		patch.Status = &st
	}

	o, err := h.service.UpdateOffer(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOfferResponse(o))
}

// DeleteOffer удаляет предложение.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireID(w, "offer id", id) {
		return
	}

	if err := h.service.DeleteOffer(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeMessage(w, http.StatusOK, "offer deleted")
}
