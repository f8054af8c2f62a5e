package services

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// SeedDemoData creates two demo accounts when the users collection is
// empty, so a fresh store has something to explore. Existing data is
// never touched.
func SeedDemoData(db *store.DB) error {
	count, err := db.Users.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	demo := []models.User{
		{
			Name:           "John Doe",
			Username:       "johndoe",
			Email:          "john@example.com",
			Bio:            "Software developer and tech enthusiast",
			ProfilePicture: "https://ui-avatars.com/api/?name=John+Doe&background=3b82f6&color=fff",
		},
		{
			Name:           "Jane Smith",
			Username:       "janesmith",
			Email:          "jane@example.com",
			Bio:            "Designer and creative thinker",
			ProfilePicture: "https://ui-avatars.com/api/?name=Jane+Smith&background=ec4899&color=fff",
		},
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	for i := range demo {
		demo[i].Password = string(hash)
		demo[i].Followers = []string{}
		demo[i].Following = []string{}
		if _, err := db.Users.Create(&demo[i]); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", demo[i].Username, err)
		}
	}

	log.Info().Int("users", len(demo)).Msg("Seeded demo data")
	return nil
}
