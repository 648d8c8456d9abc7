package main

import (
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tcnksm/go-input"

	"github.com/go-go-golems/moodchat/pkg/config"
)

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store the service URL and API token in the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("config")
			cfg, err := config.Load(path)
			if err != nil && !config.IsUnavailable(err) {
				return err
			}

			ui := &input.UI{Writer: os.Stdout, Reader: os.Stdin}
			server, err := ui.Ask("Server URL", &input.Options{
				Default:   cfg.ServerURL,
				Required:  true,
				Loop:      true,
				HideOrder: true,
				ValidateFunc: func(s string) error {
					u, err := url.Parse(strings.TrimSpace(s))
					if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
						return errors.Errorf("please enter an http(s) URL")
					}
					return nil
				},
			})
			if err != nil {
				return errors.Wrap(err, "read server url")
			}
			token, err := ui.Ask("API token", &input.Options{
				Default:     cfg.APIToken,
				Required:    true,
				Loop:        true,
				Mask:        true,
				MaskDefault: true,
				HideOrder:   true,
			})
			if err != nil {
				return errors.Wrap(err, "read api token")
			}

			cfg.ServerURL = strings.TrimRight(strings.TrimSpace(server), "/")
			cfg.APIToken = strings.TrimSpace(token)
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			log.Info().Str("component", "cli").Str("path", path).Msg("credentials saved")
			cmd.Printf("Saved %s\n", path)
			return nil
		},
	}
}
