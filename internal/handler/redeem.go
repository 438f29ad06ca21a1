package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/offer-redemption/internal/model"
)

type createRedeemRequest struct {
	UserID  string `json:"user_id" validate:"required,id"`
	OfferID string `json:"offer_id" validate:"required,id"`
}

type createRedeemResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type useRequest struct {
	RedeemID string `json:"redeem_id" validate:"required,id"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type offerSummaryResponse struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	Status        string          `json:"status"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type restaurantResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type redeemResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	OfferID       string                `json:"offer_id"`
	RestaurantID  string                `json:"restaurant_id"`
	OwnerID       string                `json:"owner_id"`
	Status        string                `json:"status"`
	PaymentStatus string                `json:"payment_status"`
	RequestedAt   string                `json:"requested_at"`
	RedeemedAt    *string               `json:"redeemed_at,omitempty"`
	UpdatedAt     string                `json:"updated_at"`
	Offer         *offerSummaryResponse `json:"offer,omitempty"`
	User          *userResponse         `json:"user,omitempty"`
	Restaurant    *restaurantResponse   `json:"restaurant,omitempty"`
	Owner         *userResponse         `json:"owner,omitempty"`
}

func newRedeemResponse(ro *model.RedeemOffer) redeemResponse {
	resp := redeemResponse{
		ID:            ro.ID,
		UserID:        ro.UserID,
		OfferID:       ro.OfferID,
		RestaurantID:  ro.RestaurantID,
		OwnerID:       ro.OwnerID,
		Status:        string(ro.Status),
		PaymentStatus: string(ro.PaymentStatus),
		RequestedAt:   ro.RequestedAt.Format(time.RFC3339),
		UpdatedAt:     ro.UpdatedAt.Format(time.RFC3339),
	}
	if ro.RedeemedAt != nil {
		at := ro.RedeemedAt.Format(time.RFC3339)
		resp.RedeemedAt = &at
	}
	return resp
}

func newUserResponse(u *model.User) *userResponse {
	if u == nil {
		return nil
	}
	return &userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

func newDetailsResponse(d *model.RedeemOfferDetails) redeemResponse {
	resp := newRedeemResponse(&d.RedeemOffer)
	if d.Offer != nil {
		resp.Offer = &offerSummaryResponse{
			ID:            d.Offer.ID,
			Title:         d.Offer.Title,
			Description:   d.Offer.Description,
			DiscountValue: d.Offer.DiscountValue,
			Status:        string(d.Offer.Status),
		}
	}
	if d.Restaurant != nil {
		resp.Restaurant = &restaurantResponse{ID: d.Restaurant.ID, Title: d.Restaurant.Title}
	}
	resp.User = newUserResponse(d.User)
	resp.Owner = newUserResponse(d.Owner)
	return resp
}

func newDetailsList(list []model.RedeemOfferDetails) []redeemResponse {
	resp := make([]redeemResponse, 0, len(list))
	for i := range list {
		resp = append(resp, newDetailsResponse(&list[i]))
	}
	return resp
}

// CreateRedeem создаёт запрос пользователя на погашение предложения.
func (h *Handler) CreateRedeem(w http.ResponseWriter, r *http.Request) {
	var req createRedeemRequest
	if !h.decode(w, r, &req) {
		return
	}

	ro, err := h.service.CreateRequest(r.Context(), req.UserID, req.OfferID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, createRedeemResponse{Status: "created", ID: ro.ID})
}

// CheckRedeem сообщает, есть ли у пользователя запрос на предложение в указанном статусе.
func (h *Handler) CheckRedeem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, offerID := q.Get("user_id"), q.Get("offer_id")
	if !h.requireID(w, "user_id", userID) || !h.requireID(w, "offer_id", offerID) {
		return
	}

	exists, err := h.service.Exists(r.Context(), userID, offerID, model.RedeemStatus(q.Get("status")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, existsResponse{Exists: exists})
}

// GetRedeem возвращает запрос на погашение со связанными сущностями.
func (h *Handler) GetRedeem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireID(w, "redeem id", id) {
		return
	}

	d, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDetailsResponse(d))
}

// ListByUser возвращает запросы пользователя.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !h.requireID(w, "user_id", userID) {
		return
	}

	list, err := h.service.ListRequestsByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDetailsList(list))
}

// ListByOwner возвращает запросы, адресованные владельцу.
func (h *Handler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	if !h.requireID(w, "owner_id", ownerID) {
		return
	}

	list, err := h.service.ListRequestsByOwner(r.Context(), ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDetailsList(list))
}

// ListByRestaurant возвращает запросы ресторана.
func (h *Handler) ListByRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID := r.URL.Query().Get("restaurant_id")
	if !h.requireID(w, "restaurant_id", restaurantID) {
		return
	}

	list, err := h.service.ListRequestsByRestaurant(r.Context(), restaurantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newDetailsList(list))
}

// UpdateRedeemStatus переводит запрос в новый статус.
func (h *Handler) UpdateRedeemStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.requireID(w, "redeem id", id) {
		return
	}

	var req transitionRequest
	if !h.decode(w, r, &req) {
		return
	}

	ro, err := h.service.Transition(r.Context(), id, model.RedeemStatus(req.Status))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRedeemResponse(ro))
}

// UseRedeem отмечает одобренный запрос как использованный.
func (h *Handler) UseRedeem(w http.ResponseWriter, r *http.Request) {
	var req useRequest
	if !h.decode(w, r, &req) {
		return
	}

	ro, err := h.service.MarkUsed(r.Context(), req.RedeemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newRedeemResponse(ro))
}
