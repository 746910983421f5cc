// Package cli is the extrajob command line.
//
//	extrajob
//	├── serve                  # run the HTTP API
//	├── migrate                # create or update tables
//	├── session issue          # dev login: user, session and optional profile
//	├── gmail-auth             # one-time OAuth consent for the gmail transport
//	├── apply <job-id>         # client commands, need --server and --token
//	├── withdraw <job-id>
//	├── applications
//	├── applicants <job-id>
//	└── watch                  # live view of the applied job ids
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/justsurfingit/extrajob/internal/auth"
	"github.com/justsurfingit/extrajob/internal/config"
	"github.com/justsurfingit/extrajob/internal/database"
	"github.com/justsurfingit/extrajob/internal/dtos"
	"github.com/justsurfingit/extrajob/internal/logging"
	"github.com/justsurfingit/extrajob/internal/services"
	"github.com/spf13/cobra"
)

type options struct {
	configFile string
	server     string
	token      string
}

func BuildCLI() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "extrajob",
		Short:         "extraJob: short-notice shift marketplace",
		SilenceUsage:  true,
		SilenceErrors: false,
		Version:       "1.0.0",
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("EXTRAJOB_SERVER", "http://localhost:8080"), "API base URL for client commands")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("EXTRAJOB_TOKEN"), "session token for client commands")

	rootCmd.AddCommand(buildServeCommand(opts))
	rootCmd.AddCommand(buildMigrateCommand(opts))
	rootCmd.AddCommand(buildSessionCommand(opts))
	rootCmd.AddCommand(buildGmailAuthCommand(opts))
	rootCmd.AddCommand(buildApplyCommand(opts))
	rootCmd.AddCommand(buildWithdrawCommand(opts))
	rootCmd.AddCommand(buildApplicationsCommand(opts))
	rootCmd.AddCommand(buildApplicantsCommand(opts))
	rootCmd.AddCommand(buildWatchCommand(opts))

	return rootCmd
}

// Execute runs the CLI with SIGINT/SIGTERM cancelling the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return BuildCLI().ExecuteContext(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(opts *options) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format), nil
}

func buildServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger.Info("configuration loaded",
				"port", cfg.HTTP.Port,
				"db_driver", cfg.Database.Driver,
				"database_url", config.Mask(cfg.Database.URL),
				"mail_transport", cfg.Mail.Transport,
				"mail_from", cfg.Mail.From,
				"notify_queue", cfg.Notify.QueueSize,
			)

			app, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(cmd.Context())
		},
	}
}

func buildMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := database.Migrate(cmd.Context(), db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func buildSessionCommand(opts *options) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Development stand-in for the identity provider",
	}

	var email string
	var profile dtos.ProfileRequest
	var name, surname, phone, contactEmail string

	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Create the user if needed and print a new session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB(db)
			if err := database.Migrate(cmd.Context(), db, logger); err != nil {
				return err
			}

			sess, err := auth.NewAuthenticator(db, cfg.Session.TTL).Issue(cmd.Context(), email)
			if err != nil {
				return err
			}

			out := map[string]any{
				"token":      sess.Token,
				"user_id":    sess.UserID,
				"expires_at": sess.ExpiresAt,
			}
			if profile.Role != "" {
				flags := cmd.Flags()
				setIfChanged := func(flag string, v string, dst **string) {
					if flags.Changed(flag) {
						*dst = &v
					}
				}
				setIfChanged("name", name, &profile.Name)
				setIfChanged("surname", surname, &profile.Surname)
				setIfChanged("phone", phone, &profile.Phone)
				setIfChanged("contact-email", contactEmail, &profile.ContactEmail)

				p, err := services.NewProfileService(db).EnsureProfile(cmd.Context(), sess.UserID, &profile)
				if err != nil {
					return err
				}
				out["profile"] = p
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	issueCmd.Flags().StringVar(&email, "email", "", "account email (required)")
	issueCmd.Flags().StringVar(&profile.Role, "role", "", "create the profile with this role: worker or employer")
	issueCmd.Flags().StringVar(&name, "name", "", "profile name")
	issueCmd.Flags().StringVar(&surname, "surname", "", "profile surname")
	issueCmd.Flags().StringVar(&phone, "phone", "", "profile phone")
	issueCmd.Flags().StringVar(&contactEmail, "contact-email", "", "address employer notifications go to")
	_ = issueCmd.MarkFlagRequired("email")

	sessionCmd.AddCommand(issueCmd)
	return sessionCmd
}

func buildGmailAuthCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gmail-auth",
		Short: "Authorize the gmail transport and save its token file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return auth.AuthorizeGmail(cmd.Context(), cfg.Mail.CredentialsFile, cfg.Mail.TokenFile, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
