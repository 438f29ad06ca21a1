// Package service реализует каталог предложений и журнал запросов на погашение.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/offer-redemption/internal/events"
	"github.com/mmeshcher/offer-redemption/internal/metrics"
	"github.com/mmeshcher/offer-redemption/internal/model"
)

var (
	// ErrValidation возвращается при некорректных или отсутствующих входных данных.
	ErrValidation = errors.New("validation error")
	// ErrRestaurantUnresolvable возвращается, если для предложения нельзя определить ресторан или владельца.
	ErrRestaurantUnresolvable = errors.New("restaurant owner not found")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	ListOffers(ctx context.Context) ([]model.Offer, error)
	ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]model.Offer, error)
	UpdateOffer(ctx context.Context, id string, fn func(*model.Offer) error) (*model.Offer, error)
	DeleteOffer(ctx context.Context, id string) error
	ExpireOffers(ctx context.Context, now time.Time) (int64, error)

	GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error)

	CreateRedeemOffer(ctx context.Context, ro *model.RedeemOffer) error
	RedeemOfferExists(ctx context.Context, userID, offerID string, statuses ...model.RedeemStatus) (bool, error)
	UpdateRedeemOffer(ctx context.Context, id string, fn func(*model.RedeemOffer) error) (*model.RedeemOffer, error)
	GetRedeemOfferDetails(ctx context.Context, id string) (*model.RedeemOfferDetails, error)
	ListRedeemOffers(ctx context.Context, filter model.RedeemOfferFilter) ([]model.RedeemOfferDetails, error)
}

// RestaurantDirectory разрешает ресторан и его владельца по идентификатору.
type RestaurantDirectory interface {
	GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error)
}

// Publisher публикует события жизненного цикла запросов.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Service содержит бизнес-логику каталога предложений и журнала погашений.
type Service struct {
	repo      Repository
	directory RestaurantDirectory
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создаёт сервис. Если справочник не задан, владельцы ресторанов
// разрешаются через репозиторий; если не задан издатель, события отбрасываются.
func NewService(repo Repository, directory RestaurantDirectory, publisher Publisher, m *metrics.Metrics, logger *zap.Logger) *Service {
	if directory == nil {
		directory = repo
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:      repo,
		directory: directory,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) publish(ctx context.Context, t events.Type, ro *model.RedeemOffer) {
	if err := s.publisher.Publish(ctx, events.NewEvent(t, ro, s.now())); err != nil {
		s.logger.Warn("publish redemption event failed",
			zap.Error(err),
			zap.String("type", string(t)),
			zap.String("redeem_id", ro.ID),
		)
	}
}
