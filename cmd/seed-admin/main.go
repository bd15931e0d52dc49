// seed-admin creates or updates the superadmin profile and prints a bearer
// token for it.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
//
// Override the defaults with SEED_ADMIN_USERNAME / SEED_ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/utils"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "atelierAdmin"
	defaultAdminPassword = "Atelier@dmin"
	adminFullName        = "Atelier Admin"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable(db)

	username := os.Getenv("SEED_ADMIN_USERNAME")
	if username == "" {
		username = defaultAdminUsername
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = defaultAdminPassword
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var profile models.Profile
	err = db.WithContext(ctx).Where("username = ?", username).First(&profile).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup profile: %v\n", err)
			os.Exit(1)
		}
		profile = models.Profile{
			Username:     username,
			FullName:     adminFullName,
			Role:         string(models.RoleSuperadmin),
			PasswordHash: hashed,
			IsActive:     utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create superadmin profile: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created superadmin profile: username=%q id=%d\n", username, profile.ID)
	} else {
		if err := db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profile.ID).Updates(map[string]any{
			"full_name":     adminFullName,
			"role":          string(models.RoleSuperadmin),
			"password_hash": hashed,
			"is_active":     utils.NewTrue(),
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update superadmin profile: %v\n", err)
			os.Exit(1)
		}
		_ = models.InvalidateProfileCache(profile.ID)
		fmt.Printf("Updated superadmin profile: username=%q id=%d\n", username, profile.ID)
	}

	token, err := utils.JwtGenerate(profile.ID, string(models.RoleSuperadmin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Bearer token: %s\n", token)
}
