// Package main is the entry point for the companion service.
// The companion is a mood intelligence pipeline for veteran support: daily
// check-ins, AI-assisted chat with crisis screening, and mood statistics.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/vetsupport/companion/internal/chat"
	"github.com/vetsupport/companion/internal/checkin"
	"github.com/vetsupport/companion/internal/config"
	"github.com/vetsupport/companion/internal/crisis"
	"github.com/vetsupport/companion/internal/data"
	"github.com/vetsupport/companion/internal/llm"
	"github.com/vetsupport/companion/internal/logging"
	"github.com/vetsupport/companion/internal/notify"
	"github.com/vetsupport/companion/internal/orchestrator"
	"github.com/vetsupport/companion/internal/recommend"
	"github.com/vetsupport/companion/internal/server"
	"github.com/vetsupport/companion/internal/stats"
	"github.com/vetsupport/companion/pkg/types"
)

var (
	version = "0.1.0"
	cfgPath string
	verbose bool
	log     *logging.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "companion",
		Short: "Companion - mood intelligence and AI support pipeline",
		Long: `Companion is a mood intelligence service for veteran support:
  • Daily mood check-ins with streaks and running statistics
  • AI-assisted supportive chat with crisis-language screening
  • Multi-provider AI orchestration with deterministic offline fallback
  • Activity recommendations matched to the current mood

Start the HTTP API:   companion serve
Chat from the shell:  companion chat --user 1
Check in:             companion checkin --user 1 --level 7`,
		PersistentPreRunE: initLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path (default ~/.companion/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Companion v%s\n", version)
		},
	})

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(checkinCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(hashTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initLogging(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}

	log = logging.New(&logging.Config{
		Level:    level,
		FilePath: cfg.Logging.File,
		Console:  true,
	})
	logging.SetGlobal(log)

	return nil
}

func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.LoadFromPath(cfgPath)
	}
	return config.Load()
}

// buildPipeline wires the full service graph from configuration.
func buildPipeline(cfg *config.Config) (*data.Store, *checkin.Service, *chat.Service, *stats.Engine, *recommend.Engine, error) {
	store, err := data.NewDB(cfg.Database.DataDir)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	providers, err := llm.BuildChain(cfg)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, nil, fmt.Errorf("build provider chain: %w", err)
	}

	timeout := time.Duration(cfg.LLM.RequestTimeoutSec) * time.Second
	orch := orchestrator.New(providers, timeout, log)

	statsEngine := stats.New(store, log)
	recEngine := recommend.New(store, log, time.Now().UnixNano())
	checkinSvc := checkin.New(store, statsEngine, orch, log)

	detector := crisis.NewKeywordDetector(cfg.Crisis.ExtraKeywords)
	notifier := notify.FromConfig(cfg.Notify, log)
	chatSvc := chat.New(store, orch, detector, notifier, statsEngine, log)

	return store, checkinSvc, chatSvc, statsEngine, recEngine, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, checkinSvc, chatSvc, statsEngine, recEngine, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(cfg, store, checkinSvc, chatSvc, statsEngine, recEngine, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func chatCmd() *cobra.Command {
	var userID int64
	var language string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat session from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, _, chatSvc, _, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			user, err := resolveCLIUser(ctx, store, userID, language)
			if err != nil {
				return err
			}

			fmt.Println("Type a message, or /quit to exit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}

				exchange, err := chatSvc.Handle(ctx, user, line, false)
				if err != nil {
					return err
				}
				fmt.Printf("\n%s\n\n[%s]\n", exchange.Response, exchange.ProviderUsed)
			}
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 1, "user ID")
	cmd.Flags().StringVar(&language, "lang", "uk", "language (uk or en)")
	return cmd
}

func checkinCmd() *cobra.Command {
	var userID int64
	var language string
	var level int
	var note string

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record a mood check-in",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, checkinSvc, _, _, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			user, err := resolveCLIUser(ctx, store, userID, language)
			if err != nil {
				return err
			}

			begin, err := checkinSvc.Begin(ctx, user)
			if err != nil {
				return err
			}
			if begin.Existing {
				fmt.Printf("Today's check-in exists (level %d); this will overwrite it.\n", begin.CheckIn.Level)
			}

			if err := checkinSvc.SubmitLevel(ctx, user, level); err != nil {
				return err
			}

			result, err := checkinSvc.SubmitNote(ctx, user, note)
			if err != nil {
				return err
			}

			fmt.Printf("Recorded level %d %s (streak: %d days)\n",
				result.CheckIn.Level, types.MoodEmoji(result.CheckIn.Level), result.Stats.StreakDays)
			if result.CheckIn.Analysis != nil && result.CheckIn.Analysis.Summary != "" {
				fmt.Printf("\n%s\n", result.CheckIn.Analysis.Summary)
			}
			for _, action := range result.CheckIn.RecommendedActions {
				fmt.Printf("  • %s\n", action)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 1, "user ID")
	cmd.Flags().StringVar(&language, "lang", "uk", "language (uk or en)")
	cmd.Flags().IntVar(&level, "level", 0, "mood level 1-10 (required)")
	cmd.Flags().StringVar(&note, "note", "", "optional free-text note")
	cmd.MarkFlagRequired("level")
	return cmd
}

func statsCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show mood statistics for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, _, _, statsEngine, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			user, err := store.GetUser(ctx, userID)
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}

			report, err := statsEngine.Report(ctx, user)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 1, "user ID")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Keys are sensitive; show presence only.
			for name, p := range cfg.LLM.Providers {
				if p.APIKey != "" {
					p.APIKey = "(set)"
					cfg.LLM.Providers[name] = p
				}
			}
			out, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				fmt.Println(cfgPath)
				return nil
			}
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			fmt.Println(homeDir + "/.companion/config.yaml")
			return nil
		},
	})

	return cmd
}

func hashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Generate a bcrypt hash for the admin bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

// resolveCLIUser loads or creates the user record used by CLI commands.
func resolveCLIUser(ctx context.Context, store *data.Store, userID int64, language string) (*types.User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}

	user, err := store.GetUser(ctx, userID)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return nil, err
	}
	if err == nil {
		if language != "" && language != user.Language {
			user.Language = language
			if err := store.UpsertUser(ctx, user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	user = &types.User{
		ID:       userID,
		Username: "cli-" + strconv.FormatInt(userID, 10),
		Language: language,
	}
	if err := store.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
