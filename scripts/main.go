package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/flexprice/subscriptions/internal/auth"
	"github.com/flexprice/subscriptions/internal/config"
	"github.com/flexprice/subscriptions/internal/integration/stripe"
	"github.com/flexprice/subscriptions/internal/service"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/flexprice/subscriptions/scripts/internal"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "scripts",
		Short:         "Maintenance scripts for the subscriptions service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newSeedPlansCmd(),
		newCreateAccountCmd(),
		newAddUserCmd(),
		newDeleteStaleCustomersCmd(),
		newGenerateTokenCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withEnv runs fn against a connected script environment.
func withEnv(fn func(ctx context.Context, env *internal.Env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := internal.NewEnv()
		if err != nil {
			return err
		}
		defer env.Close()
		return fn(cmd.Context(), env)
	}
}

func newSeedPlansCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-plans",
		Short: "Create or update plans from a JSON catalog",
		RunE: withEnv(func(ctx context.Context, env *internal.Env) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := internal.SeedPlans(ctx, env.Plans, env.DB.WithTx, f, env.Logger)
			if err != nil {
				return err
			}
			fmt.Printf("Seeded %d plan(s)\n", n)
			return nil
		}),
	}
	cmd.Flags().StringVar(&file, "file", "plans.json", "Path to the plan catalog")
	return cmd
}

func newCreateAccountCmd() *cobra.Command {
	var in internal.AccountInput

	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create an account without subscriptions",
		RunE: withEnv(func(ctx context.Context, env *internal.Env) error {
			acc, err := internal.CreateAccount(ctx, env.Accounts, in)
			if err != nil {
				return err
			}
			fmt.Printf("Created account %s (%s)\n", acc.Reference, acc.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Reference, "reference", "", "Account reference")
	cmd.Flags().StringVar(&in.Name, "name", "", "Display name, defaults to the reference")
	cmd.Flags().StringVar(&in.Email, "email", "", "Billing email")
	cmd.Flags().StringVar(&in.VATNumber, "vat-number", "", "Intra-community VAT number")
	cmd.Flags().StringVar(&in.CountryCode, "country", "", "ISO country code")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

func newAddUserCmd() *cobra.Command {
	var reference, accountRef, email string

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Attach a user to an account",
		RunE: withEnv(func(ctx context.Context, env *internal.Env) error {
			u, err := internal.AddUser(ctx, env.Accounts, env.Users, reference, accountRef, email)
			if err != nil {
				return err
			}
			fmt.Printf("Added user %s to account %s\n", u.Reference, accountRef)
			return nil
		}),
	}
	cmd.Flags().StringVar(&reference, "reference", "", "User reference, the uid carried by its tokens")
	cmd.Flags().StringVar(&accountRef, "account", "", "Account reference")
	cmd.Flags().StringVar(&email, "email", "", "User email")
	_ = cmd.MarkFlagRequired("reference")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newDeleteStaleCustomersCmd() *cobra.Command {
	var (
		dryRun bool
		ids    []string
	)

	cmd := &cobra.Command{
		Use:   "delete-stale-customers",
		Short: "Delete Stripe customers no account references",
		RunE: withEnv(func(ctx context.Context, env *internal.Env) error {
			if env.Config.Payment.Provider != types.PaymentProviderStripe {
				return fmt.Errorf("payment.provider is %q, nothing to clean", env.Config.Payment.Provider)
			}

			cleanup := service.NewCustomerCleanup(
				env.Accounts,
				stripe.NewClient(env.Config, env.Logger),
				env.Config.Cleanup.RatePerSecond,
				env.Config.Cleanup.OlderThan,
				env.Logger,
			)

			var (
				res *service.CleanupResult
				err error
			)
			if len(ids) > 0 {
				res, err = cleanup.DeleteCustomers(ctx, ids, dryRun)
			} else {
				res, err = cleanup.DeleteStale(ctx, dryRun)
			}
			if res != nil {
				fmt.Printf("Scanned %d, deleted %d, kept %d, failed %d\n", res.Scanned, res.Deleted, res.Kept, res.Failed)
			}
			return err
		}),
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report what would be deleted")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Explicit customer ids instead of scanning")
	return cmd
}

func newGenerateTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "generate-token",
		Short: "Sign a bearer token with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.NewConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is not configured")
			}

			token, err := auth.GenerateToken(cfg.Auth.Secret, userID, strings.ToLower(role), ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "User reference carried as uid")
	cmd.Flags().StringVar(&role, "role", "", "Optional role, admin grants access to every user")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime, 0 for no expiry")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
