package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/offer-redemption/internal/model"
)

func newRedeem(id, userID, offerID string) *model.RedeemOffer {
	return &model.RedeemOffer{
		ID:            id,
		UserID:        userID,
		OfferID:       offerID,
		RestaurantID:  "r1",
		OwnerID:       "w1",
		Status:        model.RedeemStatusPending,
		PaymentStatus: model.PaymentStatusNotRequired,
	}
}

func TestMemoryRepository_CreateRedeemOffer_Duplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("a", "u1", "o1")))

	err := repo.CreateRedeemOffer(ctx, newRedeem("b", "u1", "o1"))
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("c", "u1", "o2")))
	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("d", "u2", "o1")))
}

func TestMemoryRepository_CreateRedeemOffer_AfterTerminal(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("a", "u1", "o1")))

	_, err := repo.UpdateRedeemOffer(ctx, "a", func(ro *model.RedeemOffer) error {
		ro.Status = model.RedeemStatusRejected
		return nil
	})
	require.NoError(t, err)

	assert.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("b", "u1", "o1")))
}

func TestMemoryRepository_CreateRedeemOffer_Concurrent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.CreateRedeemOffer(ctx, newRedeem(string(rune('a'+i)), "u1", "o1"))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestMemoryRepository_UpdateRedeemOffer_KeepsDerivedFields(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("a", "u1", "o1")))

	updated, err := repo.UpdateRedeemOffer(ctx, "a", func(ro *model.RedeemOffer) error {
		ro.RestaurantID = "r2"
		ro.OwnerID = "w2"
		ro.Status = model.RedeemStatusApproved
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", updated.RestaurantID)
	assert.Equal(t, "w1", updated.OwnerID)
	assert.Equal(t, model.RedeemStatusApproved, updated.Status)
}

func TestMemoryRepository_UpdateRedeemOffer_ErrorLeavesRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("a", "u1", "o1")))

	boom := errors.New("boom")
	_, err := repo.UpdateRedeemOffer(ctx, "a", func(ro *model.RedeemOffer) error {
		ro.Status = model.RedeemStatusUsed
		return boom
	})
	assert.ErrorIs(t, err, boom)

	d, err := repo.GetRedeemOfferDetails(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.RedeemStatusPending, d.Status)

	_, err = repo.UpdateRedeemOffer(ctx, "missing", func(*model.RedeemOffer) error { return nil })
	assert.ErrorIs(t, err, ErrRedeemOfferNotFound)
}

func TestMemoryRepository_ExpireOffers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	require.NoError(t, repo.CreateOffer(ctx, &model.Offer{ID: "old", RestaurantIDs: []string{"r1"}, ValidTo: &past, Status: model.OfferStatusActive}))
	require.NoError(t, repo.CreateOffer(ctx, &model.Offer{ID: "new", RestaurantIDs: []string{"r1"}, ValidTo: &future, Status: model.OfferStatusActive}))
	require.NoError(t, repo.CreateOffer(ctx, &model.Offer{ID: "open", RestaurantIDs: []string{"r2"}, Status: model.OfferStatusActive}))

	n, err := repo.ExpireOffers(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.ExpireOffers(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	old, err := repo.GetOffer(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusInactive, old.Status)

	byRestaurant, err := repo.ListOffersByRestaurant(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, byRestaurant, 2)
}

func TestMemoryRepository_ListRedeemOffers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	repo.PutUser(model.User{ID: "u1", Name: "Alice"})
	repo.PutUser(model.User{ID: "w1", Name: "Owner"})
	repo.PutRestaurant(model.Restaurant{ID: "r1", Title: "Cafe", OwnerID: "w1"})
	require.NoError(t, repo.CreateOffer(ctx, &model.Offer{ID: "o1", Title: "10% off", RestaurantIDs: []string{"r1"}, Status: model.OfferStatusActive}))

	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("a", "u1", "o1")))
	require.NoError(t, repo.CreateRedeemOffer(ctx, newRedeem("b", "u2", "o1")))

	byUser, err := repo.ListRedeemOffers(ctx, model.RedeemOfferFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.NotNil(t, byUser[0].Offer)
	assert.Equal(t, "10% off", byUser[0].Offer.Title)
	require.NotNil(t, byUser[0].User)
	assert.Equal(t, "Alice", byUser[0].User.Name)
	require.NotNil(t, byUser[0].Owner)
	assert.Equal(t, "Owner", byUser[0].Owner.Name)

	byOwner, err := repo.ListRedeemOffers(ctx, model.RedeemOfferFilter{OwnerID: "w1"})
	require.NoError(t, err)
	assert.Len(t, byOwner, 2)

	require.NoError(t, repo.DeleteOffer(ctx, "o1"))
	d, err := repo.GetRedeemOfferDetails(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, d.Offer)
	assert.Nil(t, d.User)
	assert.Equal(t, "o1", d.OfferID)
}
