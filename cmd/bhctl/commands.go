package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/app"
	"boarding-house-backend/internal/auth"
	"boarding-house-backend/internal/billingrun"
	"boarding-house-backend/internal/clock"
	"boarding-house-backend/internal/db"
	"boarding-house-backend/internal/lifecycle"
	"boarding-house-backend/internal/logger"
	"boarding-house-backend/internal/proration"
	"boarding-house-backend/internal/roomstate"
	"boarding-house-backend/internal/seed"
)

// cliActor is recorded on room events written by this tool.
var cliActor = roomstate.Actor{ID: "bhctl", Admin: true}

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "bhctl")
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, log)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Database.AutoMigrate = false
			gormDB, err := db.Init(&cfg.Database, log)
			if err != nil {
				return err
			}
			if err := db.Migrate(gormDB, log); err != nil {
				return err
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}

func RentRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rent-run",
		Short: "Issue the monthly rent invoices once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			month, _ := cmd.Flags().GetString("month")
			if month == "" {
				month = a.Clock.Now().Format(lifecycle.MonthLayout)
			}
			runner := billingrun.NewRunner(a.Config.Billing.MonthlyRun, a.Service, a.Clock, a.Log)
			sum, err := runner.RunOnce(cmd.Context(), month)
			if err != nil {
				return err
			}
			return printJSON(sum)
		},
	}
	cmd.Flags().String("month", "", "payment month YYYY-MM (default: current month)")
	return cmd
}

func PreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the proration of a monthly amount at a date",
		Example: `  bhctl preview --amount 2800000 --date 2024-02-15
  bhctl preview --amount 1400000 --date 2026-02-20 --deposit 1400000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, _ := cmd.Flags().GetString("amount")
			date, _ := cmd.Flags().GetString("date")
			deposit, _ := cmd.Flags().GetString("deposit")
			newAmount, _ := cmd.Flags().GetString("new-amount")
			scale, _ := cmd.Flags().GetInt32("scale")

			req := lifecycle.PreviewRequest{}
			var err error
			if req.MonthlyAmount, err = decimal.NewFromString(amount); err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			if req.Date, err = time.Parse(time.DateOnly, date); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			if deposit != "" {
				d, err := decimal.NewFromString(deposit)
				if err != nil {
					return fmt.Errorf("--deposit: %w", err)
				}
				req.Deposit = &d
			}
			if newAmount != "" {
				d, err := decimal.NewFromString(newAmount)
				if err != nil {
					return fmt.Errorf("--new-amount: %w", err)
				}
				req.NewAmount = &d
			}

			svc := lifecycle.NewService(nil, clock.Real{}, lifecycle.WithCalculator(proration.New(scale)))
			res, err := svc.Preview(req)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().String("amount", "", "monthly amount")
	cmd.Flags().String("date", "", "reference date YYYY-MM-DD")
	cmd.Flags().String("deposit", "", "deposit to add a move-out refund")
	cmd.Flags().String("new-amount", "", "new monthly amount to add a transfer adjustment")
	cmd.Flags().Int32("scale", 0, "decimal places to round to")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			subject, _ := cmd.Flags().GetString("subject")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
			}

			token, err := auth.New(cfg.Auth.JWTSecret, cfg.Auth.Issuer, ttl).GenerateToken(subject, role)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "", "actor id, or the tenant reference for tenants")
	cmd.Flags().String("role", auth.RoleStaff, "admin, staff or tenant")
	cmd.Flags().Duration("ttl", 0, "token lifetime (default auth.token_ttl_hours)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func ImportRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create the rooms listed in a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			file, err := seed.Load(f)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := seed.Import(cmd.Context(), a.Service, file, cliActor, a.Log)
			fmt.Printf("Created %d rooms, skipped %d existing.\n", res.Created, res.Skipped)
			return err
		},
	}
}
