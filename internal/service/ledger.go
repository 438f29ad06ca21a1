package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-redemption/internal/events"
	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/repository"
	"github.com/mmeshcher/offer-redemption/internal/validation"
)

func requireIDs(ids ...string) error {
	for _, id := range ids {
		if !validation.IsValidID(id) {
			return fmt.Errorf("%w: invalid identifier %q", ErrValidation, id)
		}
	}
	return nil
}

// CreateRequest создаёт запрос пользователя на погашение предложения в статусе Pending.
// Ресторан берётся первым из списка предложения, владелец разрешается через справочник.
func (s *Service) CreateRequest(ctx context.Context, userID, offerID string) (*model.RedeemOffer, error) {
	ro, err := s.createRequest(ctx, userID, offerID)
	switch {
	case err == nil:
		s.metrics.RequestCreated("created")
	case errors.Is(err, repository.ErrDuplicateRequest):
		s.metrics.RequestCreated("duplicate")
	default:
		s.metrics.RequestCreated("failed")
	}
	return ro, err
}

func (s *Service) createRequest(ctx context.Context, userID, offerID string) (*model.RedeemOffer, error) {
	if err := requireIDs(userID, offerID); err != nil {
		return nil, err
	}

	// Предварительная проверка без блокировок; окончательно дубликат отсекает хранилище при вставке.
	exists, err := s.repo.RedeemOfferExists(ctx, userID, offerID, model.OpenRedeemStatuses...)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: user %s, offer %s", repository.ErrDuplicateRequest, userID, offerID)
	}

	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if len(offer.RestaurantIDs) == 0 {
		return nil, fmt.Errorf("%w: offer %s has no restaurants", ErrRestaurantUnresolvable, offerID)
	}

	restaurantID := offer.RestaurantIDs[0]
	restaurant, err := s.directory.GetRestaurant(ctx, restaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return nil, fmt.Errorf("%w: restaurant %s", ErrRestaurantUnresolvable, restaurantID)
		}
		return nil, fmt.Errorf("resolve restaurant: %w", err)
	}
	if restaurant.OwnerID == "" {
		return nil, fmt.Errorf("%w: restaurant %s has no owner", ErrRestaurantUnresolvable, restaurantID)
	}

	paymentStatus := model.PaymentStatusNotRequired
	if offer.PaymentRequired {
		paymentStatus = model.PaymentStatusPending
	}

	ro := &model.RedeemOffer{
		ID:            validation.NewID(),
		UserID:        userID,
		OfferID:       offerID,
		RestaurantID:  restaurantID,
		OwnerID:       restaurant.OwnerID,
		Status:        model.RedeemStatusPending,
		PaymentStatus: paymentStatus,
	}

	if err := s.repo.CreateRedeemOffer(ctx, ro); err != nil {
		return nil, err
	}

	s.logger.Info("redemption requested",
		zap.String("redeem_id", ro.ID),
		zap.String("user_id", userID),
		zap.String("offer_id", offerID),
		zap.String("owner_id", ro.OwnerID),
	)
	s.publish(ctx, events.TypeCreated, ro)

	return ro, nil
}

// Transition переводит запрос в новый статус, если он достижим из текущего.
func (s *Service) Transition(ctx context.Context, id string, next model.RedeemStatus) (*model.RedeemOffer, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	if _, err := model.ParseRedeemStatus(string(next)); err != nil {
		return nil, err
	}

	var from model.RedeemStatus
	ro, err := s.repo.UpdateRedeemOffer(ctx, id, func(ro *model.RedeemOffer) error {
		from = ro.Status
		if !model.CanTransition(ro.Status, next, ro.PaymentRequired()) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, ro.Status, next)
		}

		ro.Status = next
		switch next {
		case model.RedeemStatusPurchased:
			ro.PaymentStatus = model.PaymentStatusCompleted
		case model.RedeemStatusUsed:
			t := s.now()
			ro.RedeemedAt = &t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, from, ro)
	return ro, nil
}

// MarkUsed отмечает одобренный запрос как использованный.
// Повторная отметка возвращает model.ErrAlreadyUsed и не меняет время погашения.
func (s *Service) MarkUsed(ctx context.Context, id string) (*model.RedeemOffer, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}

	var from model.RedeemStatus
	ro, err := s.repo.UpdateRedeemOffer(ctx, id, func(ro *model.RedeemOffer) error {
		from = ro.Status
		if ro.Status == model.RedeemStatusUsed {
			return model.ErrAlreadyUsed
		}
		if !ro.Usable() {
			return fmt.Errorf("%w: status %s", model.ErrNotApproved, ro.Status)
		}

		t := s.now()
		ro.Status = model.RedeemStatusUsed
		ro.RedeemedAt = &t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, from, ro)
	return ro, nil
}

func (s *Service) committed(ctx context.Context, from model.RedeemStatus, ro *model.RedeemOffer) {
	s.metrics.Transitioned(string(from), string(ro.Status))
	s.logger.Info("redemption status changed",
		zap.String("redeem_id", ro.ID),
		zap.String("from", string(from)),
		zap.String("to", string(ro.Status)),
	)

	t := events.TypeStatusChanged
	if ro.Status == model.RedeemStatusUsed {
		t = events.TypeUsed
	}
	s.publish(ctx, t, ro)
}

// Exists сообщает, есть ли у пользователя запрос на предложение в указанном статусе.
// Проверка носит справочный характер и ничего не блокирует.
func (s *Service) Exists(ctx context.Context, userID, offerID string, status model.RedeemStatus) (bool, error) {
	if err := requireIDs(userID, offerID); err != nil {
		return false, err
	}
	if status == "" {
		status = model.RedeemStatusPending
	}
	if _, err := model.ParseRedeemStatus(string(status)); err != nil {
		return false, err
	}
	return s.repo.RedeemOfferExists(ctx, userID, offerID, status)
}

// GetRequest возвращает запрос на погашение со связанными предложением, пользователем и рестораном.
func (s *Service) GetRequest(ctx context.Context, id string) (*model.RedeemOfferDetails, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	return s.repo.GetRedeemOfferDetails(ctx, id)
}

// ListRequestsByUser возвращает запросы пользователя.
func (s *Service) ListRequestsByUser(ctx context.Context, userID string) ([]model.RedeemOfferDetails, error) {
	if err := requireIDs(userID); err != nil {
		return nil, err
	}
	return s.repo.ListRedeemOffers(ctx, model.RedeemOfferFilter{UserID: userID})
}

// ListRequestsByOwner возвращает запросы владельца во всех статусах.
func (s *Service) ListRequestsByOwner(ctx context.Context, ownerID string) ([]model.RedeemOfferDetails, error) {
	if err := requireIDs(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListRedeemOffers(ctx, model.RedeemOfferFilter{OwnerID: ownerID})
}

// ListRequestsByRestaurant возвращает запросы, относящиеся к ресторану.
func (s *Service) ListRequestsByRestaurant(ctx context.Context, restaurantID string) ([]model.RedeemOfferDetails, error) {
	if err := requireIDs(restaurantID); err != nil {
		return nil, err
	}
	return s.repo.ListRedeemOffers(ctx, model.RedeemOfferFilter{RestaurantID: restaurantID})
}
