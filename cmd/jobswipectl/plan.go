package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/domain/rules"
	pgrepo "github.com/ivankudzin/jobswipe/internal/repo/postgres"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage subscription plans",
}

var planSetCmd = &cobra.Command{
	Use:   "set <user-id> <plan>",
	Short: "Put a user on a plan (free, premium, pro, business, enterprise)",
	Long: `Put a user on a plan. Paid plans stop metering general swipes and
top up super-likes to the paid allowance; the current counters are kept
otherwise. This stands in for the billing flow.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || userID <= 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		plan := enums.ParsePlan(args[1])
		if !strings.EqualFold(string(plan), strings.TrimSpace(args[1])) {
			return fmt.Errorf("unknown plan %q", args[1])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pool, err := pgrepo.NewPool(cmd.Context(), cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		allowance := rules.Limits{
			FreeSwipes:     cfg.Limits.FreeSwipesPerPeriod,
			FreeSuperLikes: cfg.Limits.FreeSuperLikesPerPeriod,
			PaidSuperLikes: cfg.Limits.PaidSuperLikesPerPeriod,
		}.For(plan)
		if err := pgrepo.NewSubscriptionRepo(pool).SetPlan(cmd.Context(), userID, plan, allowance.SuperLikes); err != nil {
			return err
		}
		pterm.Success.Printf("user %d is now on the %s plan\n", userID, plan)
		return nil
	},
}

func init() {
	planCmd.AddCommand(planSetCmd)
}
