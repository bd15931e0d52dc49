package models

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/utils"
	"gorm.io/gorm"
)

// Profile is owned by the identity system. The gate reads it on every
// authorization check; role changes are administrative and out of scope.
type Profile struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	FullName     string    `gorm:"size:255" json:"full_name"`
	Role         string    `gorm:"size:50;not null" json:"role"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	IsActive     *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func profileCacheTTL() time.Duration {
	hours, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// GetProfileCached retrieves a profile from redis or db, caching the result.
func GetProfileCached(ctx context.Context, db *gorm.DB, id int) (*Profile, error) {
	var profile Profile
	exists, err := config.GetRedisObject(fmt.Sprintf("Profile:%d", id), &profile)
	if err != nil {
		return nil, err
	}
	if exists {
		return &profile, nil
	}

	if err := db.WithContext(ctx).Model(&Profile{}).Where("id = ?", id).Take(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, &utils.DependencyError{Provider: "profile-store", Err: err}
	}

	if err := config.SetRedisObject(fmt.Sprintf("Profile:%d", profile.ID), &profile, profileCacheTTL()); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfilesByIds fetches a set of profiles in one query. Missing ids are
// simply absent from the map; callers degrade per line, never abort.
func GetProfilesByIds(ctx context.Context, db *gorm.DB, ids []int) (map[int]*Profile, error) {
	result := make(map[int]*Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var profiles []*Profile
	if err := db.WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&profiles).Error; err != nil {
		return nil, &utils.DependencyError{Provider: "profile-store", Err: err}
	}
	for _, p := range profiles {
		result[p.ID] = p
	}
	return result, nil
}

// InvalidateProfileCache drops the cached copy after administrative updates.
func InvalidateProfileCache(id int) error {
	return config.RemoveRedisKey(fmt.Sprintf("Profile:%d", id))
}
