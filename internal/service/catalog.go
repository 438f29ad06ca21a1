package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/validation"
)

// OfferInput содержит атрибуты нового предложения.
type OfferInput struct {
	Title            string `validate:"required"`
	Description      string
	OfferType        string
	DiscountValue    decimal.Decimal
	RestaurantIDs    []string `validate:"required,min=1,dive,id"`
	ValidFrom        *time.Time
	ValidTo          *time.Time
	RequiresApproval bool
	MinOrderValue    decimal.Decimal
	MaxRedemptions   int `validate:"gte=0"`
	PaymentRequired  bool
	ImageURL         string `validate:"required"`
}

// OfferPatch содержит изменяемые поля предложения. Nil-поля не изменяются.
type OfferPatch struct {
	Title            *string
	Description      *string
	OfferType        *string
	DiscountValue    *decimal.Decimal
	RestaurantIDs    *[]string
	ValidFrom        *time.Time
	ValidTo          *time.Time
	RequiresApproval *bool
	MinOrderValue    *decimal.Decimal
	MaxRedemptions   *int
	PaymentRequired  *bool
	ImageURL         *string
	Status           *model.OfferStatus
}

func validateOffer(o *model.Offer) error {
	in := OfferInput{
		Title:          o.Title,
		RestaurantIDs:  o.RestaurantIDs,
		MaxRedemptions: o.MaxRedemptions,
		ImageURL:       o.ImageURL,
	}
	if err := validation.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if o.DiscountValue.IsNegative() || o.MinOrderValue.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	}
	if o.ValidFrom != nil && o.ValidTo != nil && o.ValidTo.Before(*o.ValidFrom) {
		return fmt.Errorf("%w: valid_to precedes valid_from", ErrValidation)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: unknown offer status %q", ErrValidation, o.Status)
	}
	return nil
}

// CreateOffer создаёт предложение в статусе Active.
func (s *Service) CreateOffer(ctx context.Context, in OfferInput) (*model.Offer, error) {
	o := &model.Offer{
		ID:               validation.NewID(),
		Title:            in.Title,
		Description:      in.Description,
		OfferType:        in.OfferType,
		DiscountValue:    in.DiscountValue,
		RestaurantIDs:    in.RestaurantIDs,
		ValidFrom:        in.ValidFrom,
		ValidTo:          in.ValidTo,
		RequiresApproval: in.RequiresApproval,
		MinOrderValue:    in.MinOrderValue,
		MaxRedemptions:   in.MaxRedemptions,
		PaymentRequired:  in.PaymentRequired,
		ImageURL:         in.ImageURL,
		Status:           model.OfferStatusActive,
	}

	if err := validateOffer(o); err != nil {
		return nil, err
	}
	s.deactivateExpired(o)

	if err := s.repo.CreateOffer(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("offer created", zap.String("offer_id", o.ID), zap.Strings("restaurant_ids", o.RestaurantIDs))
	return o, nil
}

// deactivateExpired переводит в Inactive предложение, срок действия которого уже истёк.
func (s *Service) deactivateExpired(o *model.Offer) {
	if o.Status == model.OfferStatusActive && o.Expired(s.now()) {
		o.Status = model.OfferStatusInactive
	}
}

// GetOffer возвращает предложение, предварительно деактивируя истёкшие.
func (s *Service) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}
	if _, err := s.ExpireOffers(ctx); err != nil {
		return nil, err
	}
	return s.repo.GetOffer(ctx, id)
}

// ListOffers возвращает все предложения, предварительно деактивируя истёкшие.
func (s *Service) ListOffers(ctx context.Context) ([]model.Offer, error) {
	if _, err := s.ExpireOffers(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListOffers(ctx)
}

// ListOffersByRestaurant возвращает предложения ресторана, предварительно деактивируя истёкшие.
func (s *Service) ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]model.Offer, error) {
	if err := requireIDs(restaurantID); err != nil {
		return nil, err
	}
	if _, err := s.ExpireOffers(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListOffersByRestaurant(ctx, restaurantID)
}

// UpdateOffer применяет частичное изменение к предложению.
func (s *Service) UpdateOffer(ctx context.Context, id string, patch OfferPatch) (*model.Offer, error) {
	if err := requireIDs(id); err != nil {
		return nil, err
	}

	o, err := s.repo.UpdateOffer(ctx, id, func(o *model.Offer) error {
		applyPatch(o, patch)
		if err := validateOffer(o); err != nil {
			return err
		}
		s.deactivateExpired(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer updated", zap.String("offer_id", id))
	return o, nil
}

func applyPatch(o *model.Offer, p OfferPatch) {
	if p.Title != nil {
		o.Title = *p.Title
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	if p.OfferType != nil {
		o.OfferType = *p.OfferType
	}
	if p.DiscountValue != nil {
		o.DiscountValue = *p.DiscountValue
	}
	if p.RestaurantIDs != nil {
		o.RestaurantIDs = *p.RestaurantIDs
	}
	if p.ValidFrom != nil {
		o.ValidFrom = p.ValidFrom
	}
	if p.ValidTo != nil {
		o.ValidTo = p.ValidTo
	}
	if p.RequiresApproval != nil {
		o.RequiresApproval = *p.RequiresApproval
	}
	if p.MinOrderValue != nil {
		o.MinOrderValue = *p.MinOrderValue
	}
	if p.MaxRedemptions != nil {
		o.MaxRedemptions = *p.MaxRedemptions
	}
	if p.PaymentRequired != nil {
		o.PaymentRequired = *p.PaymentRequired
	}
	if p.ImageURL != nil {
		o.ImageURL = *p.ImageURL
	}
	if p.Status != nil {
		o.Status = *p.Status
	}
}

// DeleteOffer удаляет предложение. Связанные запросы на погашение остаются в журнале.
func (s *Service) DeleteOffer(ctx context.Context, id string) error {
	if err := requireIDs(id); err != nil {
		return err
	}
	if err := s.repo.DeleteOffer(ctx, id); err != nil {
		return err
	}
	s.logger.Info("offer deleted", zap.String("offer_id", id))
	return nil
}

// ExpireOffers деактивирует активные предложения с истёкшим сроком действия.
// Повторный вызов без новых истёкших предложений ничего не меняет.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireOffers(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.OffersExpired(n)
		s.logger.Info("offers expired", zap.Int64("count", n))
	}
	return n, nil
}

// StartExpirySweep периодически деактивирует истёкшие предложения до отмены контекста.
func (s *Service) StartExpirySweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireOffers(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}
