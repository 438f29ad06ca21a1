package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/offer-redemption/internal/model"
)

// MemoryRepository хранит данные в памяти процесса.
// Все изменения выполняются под одной блокировкой записи, поэтому проверка дубликата
// и вставка атомарны относительно друг друга.
type MemoryRepository struct {
	mu          sync.RWMutex
	offers      map[string]*model.Offer
	redeems     map[string]*model.RedeemOffer
	restaurants map[string]model.Restaurant
	users       map[string]model.User
	now         func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		offers:      make(map[string]*model.Offer),
		redeems:     make(map[string]*model.RedeemOffer),
		restaurants: make(map[string]model.Restaurant),
		users:       make(map[string]model.User),
		now:         time.Now,
	}
}

// Close ничего не делает.
func (m *MemoryRepository) Close() error {
	return nil
}

// PutRestaurant добавляет или заменяет ресторан в справочнике.
func (m *MemoryRepository) PutRestaurant(rs model.Restaurant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restaurants[rs.ID] = rs
}

// PutUser добавляет или заменяет пользователя в справочнике.
func (m *MemoryRepository) PutUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func copyOffer(o *model.Offer) *model.Offer {
	c := *o
	c.RestaurantIDs = slices.Clone(o.RestaurantIDs)
	if o.ValidFrom != nil {
		v := *o.ValidFrom
		c.ValidFrom = &v
	}
	if o.ValidTo != nil {
		v := *o.ValidTo
		c.ValidTo = &v
	}
	return &c
}

func copyRedeemOffer(ro *model.RedeemOffer) *model.RedeemOffer {
	c := *ro
	if ro.RedeemedAt != nil {
		v := *ro.RedeemedAt
		c.RedeemedAt = &v
	}
	return &c
}

// CreateOffer сохраняет новое предложение.
func (m *MemoryRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.offers[o.ID]; ok {
		return fmt.Errorf("insert offer: duplicate id %s", o.ID)
	}
	o.CreatedAt = m.now()
	m.offers[o.ID] = copyOffer(o)
	return nil
}

// GetOffer возвращает предложение по идентификатору.
func (m *MemoryRepository) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.offers[id]
	if !ok {
		return nil, ErrOfferNotFound
	}
	return copyOffer(o), nil
}

func (m *MemoryRepository) listOffers(match func(*model.Offer) bool) []model.Offer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Offer
	for _, o := range m.offers {
		if match(o) {
			res = append(res, *copyOffer(o))
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res
}

// ListOffers возвращает все предложения.
func (m *MemoryRepository) ListOffers(ctx context.Context) ([]model.Offer, error) {
	return m.listOffers(func(*model.Offer) bool { return true }), nil
}

// ListOffersByRestaurant возвращает предложения, привязанные к ресторану.
func (m *MemoryRepository) ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]model.Offer, error) {
	return m.listOffers(func(o *model.Offer) bool {
		return slices.Contains(o.RestaurantIDs, restaurantID)
	}), nil
}

// UpdateOffer изменяет предложение под блокировкой записи.
func (m *MemoryRepository) UpdateOffer(ctx context.Context, id string, fn func(*model.Offer) error) (*model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.offers[id]
	if !ok {
		return nil, ErrOfferNotFound
	}

	o := copyOffer(cur)
	if err := fn(o); err != nil {
		return nil, err
	}
	o.ID = cur.ID
	o.CreatedAt = cur.CreatedAt
	m.offers[id] = copyOffer(o)
	return o, nil
}

// DeleteOffer удаляет предложение. Запросы на погашение сохраняются.
func (m *MemoryRepository) DeleteOffer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.offers[id]; !ok {
		return ErrOfferNotFound
	}
	delete(m.offers, id)
	return nil
}

// ExpireOffers переводит в Inactive активные предложения с истёкшим сроком действия.
func (m *MemoryRepository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, o := range m.offers {
		if o.Status == model.OfferStatusActive && o.Expired(now) {
			o.Status = model.OfferStatusInactive
			n++
		}
	}
	return n, nil
}

// GetRestaurant возвращает ресторан из справочника.
func (m *MemoryRepository) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.restaurants[id]
	if !ok {
		return nil, ErrRestaurantNotFound
	}
	return &rs, nil
}

// CreateRedeemOffer сохраняет новый запрос, если у пары нет открытого запроса.
func (m *MemoryRepository) CreateRedeemOffer(ctx context.Context, ro *model.RedeemOffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.redeems {
		if existing.UserID == ro.UserID && existing.OfferID == ro.OfferID && existing.Status.Open() {
			return fmt.Errorf("%w: user %s, offer %s", ErrDuplicateRequest, ro.UserID, ro.OfferID)
		}
	}

	now := m.now()
	ro.RequestedAt = now
	ro.UpdatedAt = now
	m.redeems[ro.ID] = copyRedeemOffer(ro)
	return nil
}

// RedeemOfferExists сообщает, есть ли у пользователя запрос на предложение в одном из статусов.
func (m *MemoryRepository) RedeemOfferExists(ctx context.Context, userID, offerID string, statuses ...model.RedeemStatus) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ro := range m.redeems {
		if ro.UserID == userID && ro.OfferID == offerID && slices.Contains(statuses, ro.Status) {
			return true, nil
		}
	}
	return false, nil
}

// UpdateRedeemOffer выполняет чтение-изменение-запись запроса под блокировкой записи.
// Поля restaurant_id и owner_id не изменяются.
func (m *MemoryRepository) UpdateRedeemOffer(ctx context.Context, id string, fn func(*model.RedeemOffer) error) (*model.RedeemOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.redeems[id]
	if !ok {
		return nil, ErrRedeemOfferNotFound
	}

	ro := copyRedeemOffer(cur)
	if err := fn(ro); err != nil {
		return nil, err
	}

	ro.ID = cur.ID
	ro.UserID = cur.UserID
	ro.OfferID = cur.OfferID
	ro.RestaurantID = cur.RestaurantID
	ro.OwnerID = cur.OwnerID
	ro.RequestedAt = cur.RequestedAt
	ro.UpdatedAt = m.now()

	m.redeems[id] = copyRedeemOffer(ro)
	return ro, nil
}

func (m *MemoryRepository) details(ro *model.RedeemOffer) model.RedeemOfferDetails {
	d := model.RedeemOfferDetails{RedeemOffer: *copyRedeemOffer(ro)}

	if o, ok := m.offers[ro.OfferID]; ok {
		d.Offer = &model.OfferSummary{
			ID:            o.ID,
			Title:         o.Title,
			Description:   o.Description,
			DiscountValue: o.DiscountValue,
			Status:        o.Status,
		}
	}
	if u, ok := m.users[ro.UserID]; ok {
		d.User = &u
	}
	if rs, ok := m.restaurants[ro.RestaurantID]; ok {
		d.Restaurant = &rs
	}
	if w, ok := m.users[ro.OwnerID]; ok {
		d.Owner = &w
	}
	return d
}

// GetRedeemOfferDetails возвращает запрос на погашение вместе со связанными данными.
func (m *MemoryRepository) GetRedeemOfferDetails(ctx context.Context, id string) (*model.RedeemOfferDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ro, ok := m.redeems[id]
	if !ok {
		return nil, ErrRedeemOfferNotFound
	}
	d := m.details(ro)
	return &d, nil
}

// ListRedeemOffers возвращает запросы на погашение по фильтру, новые первыми.
func (m *MemoryRepository) ListRedeemOffers(ctx context.Context, filter model.RedeemOfferFilter) ([]model.RedeemOfferDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.RedeemOfferDetails
	for _, ro := range m.redeems {
		if filter.UserID != "" && ro.UserID != filter.UserID {
			continue
		}
		if filter.OwnerID != "" && ro.OwnerID != filter.OwnerID {
			continue
		}
		if filter.RestaurantID != "" && ro.RestaurantID != filter.RestaurantID {
			continue
		}
		res = append(res, m.details(ro))
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].RequestedAt.Equal(res[j].RequestedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].RequestedAt.After(res[j].RequestedAt)
	})
	return res, nil
}
