package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/angelo/ai"
	"github.com/hrygo/angelo/ai/configloader"
	"github.com/hrygo/angelo/ai/metrics"
	"github.com/hrygo/angelo/internal/profile"
	"github.com/hrygo/angelo/internal/version"
	"github.com/hrygo/angelo/plugin/chat_apps/channels/telegram"
	"github.com/hrygo/angelo/server"
	"github.com/hrygo/angelo/store"
	"github.com/hrygo/angelo/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "angelo",
		Short: `Angelo, a voice and chat assistant for the family album.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Systemd units pass their environment directly.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			setupLogger(instanceProfile)
			return runServer(cmd.Context(), instanceProfile)
		},
		SilenceUsage: true,
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "memory")
	viper.SetDefault("port", 28090)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 28090, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "memory", "preference driver (memory, sqlite, postgres)")
	flags.String("dsn", "", "database source name(aka. DSN)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Duration("turn-latency", 600*time.Millisecond, "pause before each turn is resolved")
	flags.Duration("navigation-delay", 800*time.Millisecond, "delay attached to navigation effects")
	flags.Int("session-capacity", 1000, "maximum number of live sessions")
	flags.Duration("session-ttl", 30*time.Minute, "idle session lifetime")
	flags.String("telegram-token", "", "Telegram bot token, enables the Telegram channel")
	flags.String("family", "", "YAML family directory, defaults to the built-in demo family")

	for _, key := range []string{
		"mode", "addr", "port", "data", "driver", "dsn", "log-level",
		"turn-latency", "navigation-delay", "session-capacity", "session-ttl", "telegram-token", "family",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("angelo")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(askCmd, chatCmd, versionCmd)
}

// loadProfile builds the profile from flags, viper keys and ANGELO_* variables.
func loadProfile() (*profile.Profile, error) {
	mode := viper.GetString("mode")
	p := &profile.Profile{
		Mode:             mode,
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Data:             viper.GetString("data"),
		Driver:           viper.GetString("driver"),
		DSN:              viper.GetString("dsn"),
		LogLevel:         viper.GetString("log-level"),
		TurnLatency:      viper.GetDuration("turn-latency"),
		NavigationDelay:  viper.GetDuration("navigation-delay"),
		SessionCapacity:  viper.GetInt("session-capacity"),
		SessionTTL:       viper.GetDuration("session-ttl"),
		TelegramBotToken: viper.GetString("telegram-token"),
		FamilyFile:       viper.GetString("family"),
		Version:          version.GetCurrentVersion(mode),
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	if p.LogLevel != "" {
		if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
			fmt.Fprintf(os.Stderr, "invalid log level %q, using %s\n", p.LogLevel, level)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadDirectory returns the family from p.FamilyFile, or the demo family.
func loadDirectory(p *profile.Profile) (*store.Directory, error) {
	if p.FamilyFile == "" {
		return store.FixtureDirectory(), nil
	}
	directory, err := configloader.NewLoader(".").LoadFamily(p.FamilyFile)
	if err != nil {
		return nil, fmt.Errorf("load family file: %w", err)
	}
	slog.Info("loaded family directory", "file", p.FamilyFile, "members", directory.Len())
	return directory, nil
}

func newAssistant(p *profile.Profile, directory *store.Directory) (*ai.Assistant, error) {
	return ai.NewAssistant(ai.NewConfigFromProfile(p), directory,
		metrics.NewPrometheusExporter(metrics.DefaultConfig()))
}

func runServer(parent context.Context, p *profile.Profile) error {
	if parent == nil {
		parent = context.Background()
	}
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	ctx, stop := signal.NotifyContext(parent, terminationSignals...)
	defer stop()

	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		slog.Error("failed to create db driver", "error", err)
		return err
	}
	directory, err := loadDirectory(p)
	if err != nil {
		return err
	}
	storeInstance := store.NewWithDirectory(dbDriver, p, directory)
	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "error", err)
		return err
	}

	assistant, err := newAssistant(p, directory)
	if err != nil {
		slog.Error("failed to create assistant", "error", err)
		return err
	}

	s, err := server.NewServer(ctx, p, storeInstance, assistant)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	if p.TelegramBotToken != "" {
		channel, err := telegram.NewTelegramChannel(&telegram.TelegramConfig{BotToken: p.TelegramBotToken}, assistant)
		if err != nil {
			slog.Error("failed to start telegram channel", "error", err)
		} else {
			g.Go(func() error {
				defer channel.Close()
				return channel.Run(gctx)
			})
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})

	printGreetings(p)
	return g.Wait()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Angelo %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Preference driver: %s\n", p.Driver)
	if p.Driver == "sqlite" {
		fmt.Printf("Database: %s\n", p.DSN)
	}
	fmt.Printf("Mode: %s\n", p.Mode)
	if p.IsLLMEnabled() {
		fmt.Printf("LLM: %s (%s)\n", p.LLMProvider, p.LLMModel)
	} else {
		fmt.Println("LLM: not configured, rules only")
	}
	if p.TelegramBotToken != "" {
		fmt.Println("Telegram channel: enabled")
	}

	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
		fmt.Printf("Access Angelo at: http://localhost:%d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
		fmt.Printf("Access Angelo at: http://%s:%d\n", p.Addr, p.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
