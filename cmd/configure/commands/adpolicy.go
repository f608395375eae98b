package commands

import (
	"context"
	"fmt"

	"github.com/mantralabs/japa-api/internal/config"
	"github.com/mantralabs/japa-api/internal/database"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/spf13/cobra"
)

// NewAdPolicyCmd creates the adpolicy configuration command with list
// and set subcommands.
func NewAdPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adpolicy",
		Short: "Manage ad admission policy",
		Long:  "List or update the interstitial frequency caps. Stored in database.",
	}
	cmd.AddCommand(newAdPolicyListCmd())
	cmd.AddCommand(newAdPolicySetCmd())
	return cmd
}

func openAdPolicyRepo() (*database.AdPolicyConfigRepository, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return database.NewAdPolicyConfigRepository(db), closeFn, nil
}

func newAdPolicyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List current ad policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openAdPolicyRepo()
			if err != nil {
				return err
			}
			defer closeFn()

			c, err := repo.Get(context.Background())
			if err != nil {
				return fmt.Errorf("get ad policy: %w", err)
			}
			if c == nil {
				fmt.Println("No ad policy in database; the server runs with defaults. Use 'adpolicy set' to store one.")
				return nil
			}
			fmt.Println("Ad admission policy:")
			fmt.Printf("  Max interstitials per day: %d\n", c.MaxPerDay)
			fmt.Printf("  Cooldown:                  %s\n", c.Cooldown())
			fmt.Printf("  Timer origin gap:          %s\n", c.TimerGap())
			fmt.Printf("  Rewarded gap:              %s\n", c.RewardedGap())
			fmt.Printf("  Rewarded session cap:      %d\n", c.RewardedSessionCap)
			return nil
		},
	}
}

func newAdPolicySetCmd() *cobra.Command {
	var (
		maxPerDay          int64
		cooldownSeconds    int64
		timerGapSeconds    int64
		rewardedGapSeconds int64
		rewardedSessionCap int64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the ad admission policy",
		Long:  "Update the interstitial frequency caps. All values must be positive.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openAdPolicyRepo()
			if err != nil {
				return err
			}
			defer closeFn()

			c := &models.AdPolicyConfig{
				MaxPerDay:          maxPerDay,
				CooldownSeconds:    cooldownSeconds,
				TimerGapSeconds:    timerGapSeconds,
				RewardedGapSeconds: rewardedGapSeconds,
				RewardedSessionCap: rewardedSessionCap,
			}
			if err := repo.Set(context.Background(), c); err != nil {
				return fmt.Errorf("set ad policy: %w", err)
			}
			fmt.Println("Ad policy updated.")
			return nil
		},
	}

	cmd.Flags().Int64Var(&maxPerDay, "max-per-day", 5, "Maximum interstitials per calendar day")
	cmd.Flags().Int64Var(&cooldownSeconds, "cooldown", 180, "Global cooldown between interstitials, in seconds")
	cmd.Flags().Int64Var(&timerGapSeconds, "timer-gap", 300, "Extra gap for timer-origin interstitials, in seconds")
	cmd.Flags().Int64Var(&rewardedGapSeconds, "rewarded-gap", 60, "Minimum gap between rewarded ads, in seconds")
	cmd.Flags().Int64Var(&rewardedSessionCap, "rewarded-session-cap", 10, "Rewarded ads allowed per session")
	return cmd
}
