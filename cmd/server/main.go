package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-hub/internal/config"
	"campus-hub/internal/database"
	"campus-hub/internal/logging"
	"campus-hub/internal/models"
	"campus-hub/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	cfg    *config.Config
	logger *zap.Logger

	newUserEmail    string
	newUserPassword string
	newUserName     string
	newUserRole     string
)

var rootCmd = &cobra.Command{
	Use:   "campus-hub",
	Short: "Campus Hub - ranch asset and log dashboard",
	Long: `Campus Hub records the ranch's assets (land, power, infrastructure and
bio-systems) and the maintenance, feeding and health logs kept against them.

Run without a subcommand to start the web server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and bootstrap the admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Init(cfg); err != nil {
			return err
		}
		logger.Info("migration complete")
		return nil
	},
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Add an account with the given role",
	Example: `  campus-hub create-user --email hand@ranch.local --password s3cret! --role collaborator
  campus-hub create-user --email owner@ranch.local --password s3cret! --role admin --name "Owner"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Init(cfg); err != nil {
			return err
		}
		user, err := database.CreateUser(cmd.Context(), newUserEmail, newUserPassword, newUserName, models.UserRole(newUserRole))
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (role=%s, id=%d)\n", user.Email, user.Role, user.ID)
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	if err := database.Init(cfg); err != nil {
		return err
	}

	if logger.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r, err := server.NewRouter(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("app_id", cfg.AppID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func init() {
	createUserCmd.Flags().StringVar(&newUserEmail, "email", "", "account email")
	createUserCmd.Flags().StringVar(&newUserPassword, "password", "", "account password")
	createUserCmd.Flags().StringVar(&newUserName, "name", "", "display name")
	createUserCmd.Flags().StringVar(&newUserRole, "role", string(models.RoleCollaborator), "admin, collaborator or viewer")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, createUserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
