package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mmeshcher/offer-redemption/internal/model"
	"github.com/mmeshcher/offer-redemption/internal/validation"
)

// Seed описывает начальное содержимое справочников хранилища в памяти.
type Seed struct {
	Restaurants []model.Restaurant `json:"restaurants"`
	Users       []model.User       `json:"users"`
}

func (s *Seed) validate() error {
	for _, rs := range s.Restaurants {
		if !validation.IsValidID(rs.ID) {
			return fmt.Errorf("invalid restaurant id %q", rs.ID)
		}
		if !validation.IsValidID(rs.OwnerID) {
			return fmt.Errorf("invalid owner id %q for restaurant %s", rs.OwnerID, rs.ID)
		}
	}
	for _, u := range s.Users {
		if !validation.IsValidID(u.ID) {
			return fmt.Errorf("invalid user id %q", u.ID)
		}
	}
	return nil
}

// LoadSeed читает справочники ресторанов и пользователей в формате JSON.
// При ошибке хранилище не изменяется.
func (m *MemoryRepository) LoadSeed(r io.Reader) error {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return fmt.Errorf("validate seed: %w", err)
	}

	for _, rs := range seed.Restaurants {
		m.PutRestaurant(rs)
	}
	for _, u := range seed.Users {
		m.PutUser(u)
	}
	return nil
}

// LoadSeedFile загружает справочники из файла.
func (m *MemoryRepository) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return m.LoadSeed(f)
}
