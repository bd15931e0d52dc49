package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/modaflow/atelier_backend/config"
	"gorm.io/gorm"
)

// AcquireSewingOrderLock serializes the confirm -> sewing-order upsert per
// (product model, manufacturer) key across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB
// that will do the upsert transaction.
func AcquireSewingOrderLock(tx *gorm.DB, openKey string) error {
	lockName := fmt.Sprintf("sewing-order:%s", openKey)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire sewing order lock for key=%s", openKey)
	}
	return nil
}

func ReleaseSewingOrderLock(tx *gorm.DB, openKey string) {
	lockName := fmt.Sprintf("sewing-order:%s", openKey)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// obtainBestEffortLock takes a redis lock when redis is configured.
// Reliability must not depend on Redis: the MySQL advisory lock plus the
// unique open-order index are the source of truth.
func obtainBestEffortLock(ctx context.Context, key string) *redislock.Lock {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	lock, err := locker.Obtain(ctx, "lock:sewing-order:"+key, 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
	})
	if err != nil {
		return nil
	}
	return lock
}
