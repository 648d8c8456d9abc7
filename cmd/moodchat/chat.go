package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/moodchat/pkg/attachment"
	"github.com/go-go-golems/moodchat/pkg/avatar"
	"github.com/go-go-golems/moodchat/pkg/client"
	"github.com/go-go-golems/moodchat/pkg/config"
	"github.com/go-go-golems/moodchat/pkg/events"
	"github.com/go-go-golems/moodchat/pkg/feed"
	"github.com/go-go-golems/moodchat/pkg/prefs"
	"github.com/go-go-golems/moodchat/pkg/session"
	"github.com/go-go-golems/moodchat/pkg/ui"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open a chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plain := viper.GetBool("plain") || !isatty.IsTerminal(os.Stdout.Fd())
			if err := initLogger(viper.GetString("log-level"), viper.GetString("log-file"), !plain); err != nil {
				return err
			}

			cfg, err := loadConfig(viper.GetString("config"))
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), cfg, plain)
		},
	}
	f := cmd.Flags()
	f.Bool("plain", false, "line mode instead of the full-screen UI")
	f.String("feed-addr", "", "serve session events over websocket on this address (e.g. :8090)")
	f.String("server-url", "", "conversation service base URL")
	f.String("asset-root", "", "avatar asset URL or directory")
	cobra.CheckErr(viper.BindPFlags(f))
	return cmd
}

// loadConfig reads the config file and applies flag and MOODCHAT_* overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if !config.IsUnavailable(err) {
			return nil, err
		}
		log.Debug().Err(err).Str("component", "cli").Msg("using default configuration")
	}
	if v := viper.GetString("server-url"); v != "" {
		cfg.ServerURL = v
	}
	if v := viper.GetString("api-token"); v != "" {
		cfg.APIToken = v
	}
	if v := viper.GetString("asset-root"); v != "" {
		cfg.AssetRoot = v
	}
	if v := viper.GetString("feed-addr"); v != "" {
		cfg.FeedAddr = v
	}
	if viper.GetBool("redis-enabled") {
		cfg.Events.RedisEnabled = true
	}
	if v := viper.GetString("redis-addr"); v != "" {
		cfg.Events.RedisAddr = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func runChat(ctx context.Context, cfg *config.Config, plain bool) error {
	conv, err := client.NewHTTPClient(client.HTTPClientOptions{
		BaseURL: cfg.ServerURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}
	images, err := attachment.NewImageCache(cfg.ImageCacheDir)
	if err != nil {
		return err
	}
	store, err := prefs.Open(cfg.Preferences.Backend, cfg.Preferences.Path)
	if err != nil {
		return errors.Wrap(err, "open preferences")
	}
	defer func() { _ = store.Close() }()

	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		return err
	}
	defer func() { _ = bus.Close() }()

	sess, err := session.New(session.Config{
		Conversation:              conv,
		Images:                    images,
		Resolver:                  avatar.NewResolver(avatar.NewProber(cfg.AssetRoot, cfg.APIToken)),
		Sink:                      bus,
		RevealDelay:               cfg.RevealDelay,
		ProactiveInterval:         cfg.ProactiveInterval,
		SummarizationPollInterval: cfg.SummarizationPollInterval,
	})
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	uiEvents, err := bus.Subscribe(ctx, "ui")
	if err != nil {
		return err
	}

	eg, gctx := errgroup.WithContext(ctx)
	if cfg.FeedAddr != "" {
		eg.Go(func() error {
			return feed.Serve(gctx, cfg.FeedAddr, bus)
		})
	}
	eg.Go(func() error {
		defer cancel()
		if err := sess.Start(gctx); err != nil {
			return err
		}
		log.Info().Str("component", "cli").Str("server", cfg.ServerURL).Bool("plain", plain).Msg("chat session running")
		if plain {
			p := &ui.Plain{Ctrl: sess, Prefs: store, In: os.Stdin, Out: os.Stdout}
			return p.Run(gctx, uiEvents)
		}
		return ui.Run(gctx, sess, store, uiEvents)
	})
	return eg.Wait()
}
