package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mantralabs/japa-api/internal/models"
)

const defaultAdPolicyConfigKey = "default"

// Compiled-in policy defaults used when no row exists yet.
const (
	DefaultAdMaxPerDay          = 5
	DefaultAdCooldownSeconds    = 180
	DefaultAdTimerGapSeconds    = 300
	DefaultAdRewardedGapSeconds = 60
	DefaultAdRewardedSessionCap = 10
)

// AdPolicyConfigRepository handles the ad admission policy row.
type AdPolicyConfigRepository struct {
	db *DB
}

// NewAdPolicyConfigRepository creates a new ad policy config repository.
func NewAdPolicyConfigRepository(db *DB) *AdPolicyConfigRepository {
	return &AdPolicyConfigRepository{db: db}
}

// Get retrieves the default ad policy config. Returns (nil, nil) when
// none has been stored yet.
func (r *AdPolicyConfigRepository) Get(ctx context.Context) (*models.AdPolicyConfig, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT config_key, max_per_day, cooldown_seconds, timer_gap_seconds,
		       rewarded_gap_seconds, rewarded_session_cap, created_at, updated_at
		FROM ad_policy_config WHERE config_key = $1
	`, defaultAdPolicyConfigKey)
	c := &models.AdPolicyConfig{}
	err := row.Scan(&c.ConfigKey, &c.MaxPerDay, &c.CooldownSeconds, &c.TimerGapSeconds,
		&c.RewardedGapSeconds, &c.RewardedSessionCap, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ad policy config: %w", err)
	}
	return c, nil
}

// GetOrDefault retrieves the stored policy, or the compiled-in
// defaults when no row exists.
func (r *AdPolicyConfigRepository) GetOrDefault(ctx context.Context) (*models.AdPolicyConfig, error) {
	c, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &models.AdPolicyConfig{
			ConfigKey:          defaultAdPolicyConfigKey,
			MaxPerDay:          DefaultAdMaxPerDay,
			CooldownSeconds:    DefaultAdCooldownSeconds,
			TimerGapSeconds:    DefaultAdTimerGapSeconds,
			RewardedGapSeconds: DefaultAdRewardedGapSeconds,
			RewardedSessionCap: DefaultAdRewardedSessionCap,
		}
	}
	return c, nil
}

// Set upserts the default ad policy config.
func (r *AdPolicyConfigRepository) Set(ctx context.Context, c *models.AdPolicyConfig) error {
	if c.MaxPerDay < 0 || c.CooldownSeconds < 0 || c.TimerGapSeconds < 0 ||
		c.RewardedGapSeconds < 0 || c.RewardedSessionCap < 0 {
		return fmt.Errorf("ad policy values cannot be negative")
	}
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ad_policy_config (config_key, max_per_day, cooldown_seconds, timer_gap_seconds,
			rewarded_gap_seconds, rewarded_session_cap, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (config_key) DO UPDATE SET
			max_per_day = EXCLUDED.max_per_day,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			timer_gap_seconds = EXCLUDED.timer_gap_seconds,
			rewarded_gap_seconds = EXCLUDED.rewarded_gap_seconds,
			rewarded_session_cap = EXCLUDED.rewarded_session_cap,
			updated_at = EXCLUDED.updated_at
	`, defaultAdPolicyConfigKey, c.MaxPerDay, c.CooldownSeconds, c.TimerGapSeconds,
		c.RewardedGapSeconds, c.RewardedSessionCap, now, now)
	if err != nil {
		return fmt.Errorf("set ad policy config: %w", err)
	}
	return nil
}
