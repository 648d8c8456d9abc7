package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "moodchat",
	Short:         "moodchat is a terminal client for a mood-aware companion chat service",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// reinitialize the logger now that --log-level and co are parsed
		return initLogger(viper.GetString("log-level"), viper.GetString("log-file"), false)
	},
}

func initViper() error {
	viper.SetEnvPrefix("moodchat")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $XDG_CONFIG_HOME/moodchat/config.yaml)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "write logs to this file instead of stderr")
	return viper.BindPFlags(pf)
}

func main() {
	cobra.CheckErr(initViper())
	cobra.CheckErr(initLogger("info", "", false))

	rootCmd.AddCommand(newChatCommand())
	rootCmd.AddCommand(newLoginCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
