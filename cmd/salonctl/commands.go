package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"github.com/kursadbilgin/salon-crm/internal/app"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/config"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	infraredis "github.com/kursadbilgin/salon-crm/internal/infra/redis"
	"github.com/kursadbilgin/salon-crm/internal/observability"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"github.com/kursadbilgin/salon-crm/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultTokenTTL = 12 * time.Hour

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			_, sqlDB, err := app.OpenDatabase(cfg, true)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSalonCmd() *cobra.Command {
	salonCmd := &cobra.Command{
		Use:   "salon",
		Short: "Manage salons (tenants)",
	}

	var name, phone string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a new salon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, sqlDB, err := app.OpenDatabase(cfg, false)
			if err != nil {
				return err
			}
			defer sqlDB.Close()

			repos := app.NewRepositories(db)
			salon, err := service.NewSalonService(repos.Salons).Create(cmd.Context(), name, phone)
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"id":               salon.ID,
				"name":             salon.Name,
				"phone":            salon.Phone,
				"birthdayTemplate": salon.BirthdayTemplate,
			})
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "salon display name")
	createCmd.Flags().StringVar(&phone, "phone", "", "salon contact phone")
	_ = createCmd.MarkFlagRequired("name")

	salonCmd.AddCommand(createCmd)
	return salonCmd
}

type tokenConfig struct {
	JWTSecret string `env:"JWT_SECRET,required=true"`
}

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage session tokens",
	}

	var (
		tenantID string
		userID   string
		rawRole  string
		ttl      time.Duration
	)
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a session token for a salon user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg tokenConfig
			if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if _, err := uuid.Parse(tenantID); err != nil {
				return fmt.Errorf("%w: tenant must be a salon id", domain.ErrValidation)
			}
			role, err := domain.ParseRoleFromString(rawRole)
			if err != nil {
				return err
			}
			if userID == "" {
				userID = uuid.NewString()
			}

			verifier, err := auth.NewTokenVerifier(cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := verifier.Issue(domain.Identity{UserID: userID, TenantID: tenantID, Role: role}, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	issueCmd.Flags().StringVar(&tenantID, "tenant", "", "salon id the session is scoped to")
	issueCmd.Flags().StringVar(&userID, "user", "", "user id (random when empty)")
	issueCmd.Flags().StringVar(&rawRole, "role", domain.RoleOwner.String(), "OWNER or STAFF")
	issueCmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	_ = issueCmd.MarkFlagRequired("tenant")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}

func newTriggerCmd() *cobra.Command {
	triggerCmd := &cobra.Command{
		Use:   "trigger",
		Short: "Fire a dispatch trigger",
		Long: `Fire a dispatch trigger.

By default the trigger is published to the worker queue. With --direct it runs in this
process against the database and SMS gateway, and prints the result.`,
	}

	var (
		direct  bool
		rawDate string
	)
	birthdayCmd := &cobra.Command{
		Use:   "birthday",
		Short: "Send birthday greetings for today, or --date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runAt *time.Time
			if rawDate != "" {
				t, err := time.Parse(time.DateOnly, rawDate)
				if err != nil {
					return fmt.Errorf("%w: --date must be YYYY-MM-DD", domain.ErrValidation)
				}
				runAt = &t
			}
			return runTrigger(cmd, queue.TriggerBirthday, runAt, direct)
		},
	}
	birthdayCmd.Flags().StringVar(&rawDate, "date", "", "replay the trigger for YYYY-MM-DD")

	scheduledCmd := &cobra.Command{
		Use:   "scheduled",
		Short: "Send every scheduled campaign that is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrigger(cmd, queue.TriggerScheduled, nil, direct)
		},
	}

	triggerCmd.PersistentFlags().BoolVar(&direct, "direct", false, "run inline instead of publishing to the worker")
	triggerCmd.AddCommand(birthdayCmd, scheduledCmd)
	return triggerCmd
}

func runTrigger(cmd *cobra.Command, kind queue.TriggerKind, runAt *time.Time, direct bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, correlationID := observability.EnsureCorrelationID(cmd.Context())
	msg := queue.TriggerMessage{
		TriggerID:     uuid.NewString(),
		CorrelationID: correlationID,
		Kind:          kind,
		RequestedAt:   time.Now().UTC(),
		RunAt:         runAt,
	}

	if !direct {
		return publishTrigger(ctx, cmd, cfg, msg)
	}

	db, sqlDB, err := app.OpenDatabase(cfg, false)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	services, err := app.NewServices(cfg, db, rdb, nil, logger)
	if err != nil {
		return err
	}

	at := msg.ReferenceTime(time.Now())
	var result service.TriggerResult
	switch kind {
	case queue.TriggerBirthday:
		result, err = services.Triggers.BirthdayDispatch(ctx, at)
	case queue.TriggerScheduled:
		result, err = services.Triggers.ScheduledDispatch(ctx, at)
	default:
		err = fmt.Errorf("%w: unknown trigger kind %q", domain.ErrValidation, kind)
	}
	if err != nil {
		logger.Error("trigger failed", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func publishTrigger(ctx context.Context, cmd *cobra.Command, cfg *config.Config, msg queue.TriggerMessage) error {
	rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer rmq.Close()

	if err := queue.NewRabbitMQPublisher(rmq).Publish(ctx, queue.TriggerQueue, msg); err != nil {
		return fmt.Errorf("failed to publish trigger: %w", err)
	}

	return writeJSON(cmd.OutOrStdout(), map[string]string{
		"triggerId": msg.TriggerID,
		"kind":      string(msg.Kind),
	})
}
