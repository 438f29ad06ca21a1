package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seedRestaurant = "6f1c2a8e-1d1b-4b7a-9f5e-0c2d3e4f5a6b"
	seedOwner      = "0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d"
	seedUser       = "3c4d5e6f-7a8b-4c9d-8e0f-1a2b3c4d5e6f"
)

const seedJSON = `{
	"restaurants": [{"id": "` + seedRestaurant + `", "title": "Cafe", "owner_id": "` + seedOwner + `"}],
	"users": [
		{"id": "` + seedOwner + `", "name": "Owner", "email": "owner@example.com"},
		{"id": "` + seedUser + `", "name": "Consumer", "email": "user@example.com"}
	]
}`

func TestMemoryRepository_LoadSeed(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.LoadSeed(strings.NewReader(seedJSON)))

	rs, err := repo.GetRestaurant(ctx, seedRestaurant)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", rs.Title)
	assert.Equal(t, seedOwner, rs.OwnerID)

	repo.mu.RLock()
	owner, ok := repo.users[seedOwner]
	repo.mu.RUnlock()
	require.True(t, ok)
	assert.Equal(t, "owner@example.com", owner.Email)
}

func TestMemoryRepository_LoadSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"restaurants": [`},
		{name: "unknown field", body: `{"offers": []}`},
		{name: "bad restaurant id", body: `{"restaurants": [{"id": "r1", "title": "Cafe", "owner_id": "` + seedOwner + `"}]}`},
		{name: "bad owner id", body: `{"restaurants": [{"id": "` + seedRestaurant + `", "title": "Cafe", "owner_id": "w1"}]}`},
		{
			name: "bad user id after valid restaurant",
			body: `{"restaurants": [{"id": "` + seedRestaurant + `", "title": "Cafe", "owner_id": "` + seedOwner + `"}], "users": [{"id": "u1"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()

			assert.Error(t, repo.LoadSeed(strings.NewReader(tt.body)))

			_, err := repo.GetRestaurant(context.Background(), seedRestaurant)
			assert.ErrorIs(t, err, ErrRestaurantNotFound, "failed seed leaves storage empty")
		})
	}
}

func TestMemoryRepository_LoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o600))

	repo := NewMemoryRepository()
	require.NoError(t, repo.LoadSeedFile(path))

	_, err := repo.GetRestaurant(context.Background(), seedRestaurant)
	require.NoError(t, err)

	assert.Error(t, repo.LoadSeedFile(filepath.Join(t.TempDir(), "missing.json")))
}
