package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a demo guest identity and trips for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, gormDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if err := gormDB.Exec("DELETE FROM trips").Error; err != nil {
				log.Fatalf("failed to clear trips: %v", err)
			}
			if err := gormDB.Exec("DELETE FROM guest_identities").Error; err != nil {
				log.Fatalf("failed to clear guest identities: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		guestID := uuid.NewString()
		secret := "demo-secret"
		hash, _ := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)

		if err := gormDB.Exec(
			"INSERT INTO guest_identities (id, secret_hash, display_name, created_at, last_seen_at) VALUES (?, ?, ?, now(), now())",
			guestID, string(hash), "Demo Guest",
		).Error; err != nil {
			log.Fatalf("failed to insert demo guest: %v", err)
		}
		fmt.Println("Seeded demo guest:", guestID, "secret:", secret)

		metadata, _ := json.Marshal(map[string]interface{}{
			"notes": "Try the hawker centres near Chinatown.",
			"expenses": []map[string]interface{}{
				{
					"id":          uuid.NewString(),
					"amount":      45.0,
					"currency":    "SGD",
					"category":    "food",
					"description": "Dinner at Maxwell",
					"date":        "2026-09-12",
					"created_at":  "2026-09-12T20:15:00Z",
				},
			},
		})

		if err := gormDB.Exec(
			`INSERT INTO trips (guest_id, destination, status, start_date, end_date, duration_days, budget, travelers_count, trip_metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, now(), now())`,
			guestID, "Singapore", "booked", "2026-09-10", "2026-09-15", 5, 1500.0, 2, metadata,
		).Error; err != nil {
			log.Fatalf("failed to insert demo trip: %v", err)
		}
		fmt.Println("Seeded demo trip: Singapore")

		if err := gormDB.Exec(
			`INSERT INTO trips (guest_id, destination, status, travelers_count, trip_metadata, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, now(), now())`,
			guestID, "Tokyo", "planning", 1, []byte("{}"),
		).Error; err != nil {
			log.Fatalf("failed to insert demo trip: %v", err)
		}
		fmt.Println("Seeded demo trip: Tokyo")
	},
}
