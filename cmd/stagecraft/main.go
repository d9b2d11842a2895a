package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/niadesignwork-svg/stagecraft/internal/artifact"
	"github.com/niadesignwork-svg/stagecraft/internal/batch"
	"github.com/niadesignwork-svg/stagecraft/internal/config"
	"github.com/niadesignwork-svg/stagecraft/internal/display"
	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/generative/gemini"
	"github.com/niadesignwork-svg/stagecraft/internal/keys"
	"github.com/niadesignwork-svg/stagecraft/internal/library"
	"github.com/niadesignwork-svg/stagecraft/internal/log"
	"github.com/niadesignwork-svg/stagecraft/internal/repl"
	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/internal/studio"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig string
	flagAPIKey string
)

// App carries the seams the tests replace.
type App struct {
	In        io.Reader
	Out       io.Writer
	Err       io.Writer
	NewClient func(ctx context.Context, cfg *gemini.Config, logger *slog.Logger) (generative.Client, error)
}

func DefaultApp() *App {
	return &App{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
		NewClient: func(ctx context.Context, cfg *gemini.Config, logger *slog.Logger) (generative.Client, error) {
			return gemini.New(ctx, cfg, logger)
		},
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	return newRootCmd(app).Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagecraft",
		Short: "Design concert stage visuals with a generative model",
		Long: `stagecraft is an interactive tool for designing concert stage visuals.

Describe the stage concept (set pieces, palette, vibe, mechanics), generate
candidate renders, refine them with edits, viewpoint changes and upscaling,
animate the result, and organize everything in a local library.

Examples:
  stagecraft                  start the interactive studio
  stagecraft keys set         store your Gemini API key
  stagecraft keys show        show the stored key (masked)`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudio(app)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.toml")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "Gemini API key (overrides stored key and GEMINI_API_KEY)")

	cmd.AddCommand(newKeysCmd(app))
	return cmd
}

func runStudio(app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, cfgPath, loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.Logging.Level), JSON: cfg.Logging.JSON})
	if loaded {
		logger.Debug("config loaded", "path", cfgPath)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	apiKey, keySource, err := keys.GetAPIKey(flagAPIKey, keys.ProviderGemini, keys.EnvAPIKey)
	if err != nil {
		return err
	}
	logger.Debug("API key resolved", "source", keySource)

	client, err := app.NewClient(ctx, &gemini.Config{
		APIKey:     apiKey,
		ImageModel: cfg.Generation.ImageModel,
		TextModel:  cfg.Generation.TextModel,
		VideoModel: cfg.Generation.VideoModel,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create generative client: %w", err)
	}

	store, err := library.NewStore(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	defer store.Close()
	lib := library.NewManager(store, logger)

	policy := retry.NewPolicy(logger)
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.InitialDelay = time.Duration(cfg.Retry.InitialDelaySeconds) * time.Second
	if rpm := cfg.Retry.RequestsPerMinute; rpm > 0 {
		policy.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}

	coordinator := batch.NewCoordinator(client, policy, logger)
	coordinator.SetPause(time.Duration(cfg.Generation.PauseSeconds) * time.Second)

	saver := artifact.NewSaver(cfg.ArtifactDir())
	controller := studio.NewController(&studio.Config{
		Coordinator: coordinator,
		Client:      client,
		Library:     lib,
		Saver:       saver,
		Policy:      policy,
		Logger:      logger,
		Autosave:    cfg.Studio.Autosave,
	})

	r := repl.New(&repl.Config{
		In:           app.In,
		Out:          app.Out,
		Err:          app.Err,
		Studio:       controller,
		Library:      lib,
		Saver:        saver,
		Displayer:    display.New(app.Out),
		DefaultCount: cfg.Generation.DefaultCount,
	})
	return r.Run(ctx)
}

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored Gemini API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store the Gemini API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}

			key := flagAPIKey
			if key == "" {
				fmt.Fprint(app.Out, "Gemini API key: ")
				raw, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(app.Out)
				if err != nil {
					return fmt.Errorf("failed to read key: %w", err)
				}
				key = string(raw)
			}
			if key == "" {
				return fmt.Errorf("no key given")
			}

			if err := store.Set(keys.ProviderGemini, key); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Key stored in %s\n", store.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored key, masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			key, err := store.Get(keys.ProviderGemini)
			if err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintln(app.Out, "No key stored.")
				return nil
			}
			fmt.Fprintf(app.Out, "gemini: %s\n", keys.MaskKey(key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the stored key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Delete(keys.ProviderGemini); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, "Key deleted.")
			return nil
		},
	})

	return cmd
}
