package seed

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/OliSalles/StoryTeller/internal/application/billing/usecases"
	"github.com/OliSalles/StoryTeller/internal/domain/billing"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/cache"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/config"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/database"
	"github.com/OliSalles/StoryTeller/internal/infrastructure/repository"
	"github.com/OliSalles/StoryTeller/internal/shared/logger"
)

var (
	env        string
	configPath string
	planFile   string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed reference data",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(newPlansCommand())
	return cmd
}

func newPlansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Upsert the plan catalog",
		Long:  `Create or update subscription plans from a YAML file, matching existing rows by name, and drop cached plan entries.`,
		RunE:  runPlans,
	}
	cmd.Flags().StringVarP(&planFile, "file", "f", "./configs/plans.yaml", "Plan definitions")
	return cmd
}

func runPlans(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(env, configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.NewLogger()

	attrs, err := LoadPlanFile(planFile)
	if err != nil {
		return err
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	redisClient := cache.NewRedisClient(cfg.Redis, log)
	defer redisClient.Close()

	ttl := time.Duration(cfg.Billing.PlanCacheTTLMinutes) * time.Minute
	planRepo := cache.NewCachedPlanRepository(
		repository.NewPlanRepository(database.Get(), log),
		redisClient, ttl, log.Named("plan_cache"),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	n, err := usecases.NewSeedPlansUseCase(planRepo, log).Execute(ctx, attrs)
	if err != nil {
		return fmt.Errorf("seeded %d of %d plans: %w", n, len(attrs), err)
	}
	log.Infow("plans seeded", "count", n, "file", planFile)

	plans, err := planRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}
	return printPlans(cmd.OutOrStdout(), plans)
}

func printPlans(w io.Writer, plans []*billing.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMONTHLY\tYEARLY\tTOKENS\tFEATURES\tMONTHLY PRICE ID\tYEARLY PRICE ID")
	for _, p := range plans {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID(), p.Name(),
			formatCents(p.PriceMonthly()), formatCents(p.PriceYearly()),
			formatLimit(p.TokensLimit()), formatLimit(p.FeaturesLimit()),
			orDash(p.StripeMonthlyPriceID()), orDash(p.StripeYearlyPriceID()),
		)
	}
	return tw.Flush()
}

func formatCents(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}

func formatLimit(v *int64) string {
	if v == nil {
		return "unlimited"
	}
	return fmt.Sprintf("%d", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
