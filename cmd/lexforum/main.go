package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LexForumLab/lexforum/client/internal/config"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexforum",
		Short: "LexForum client core",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newReminderCommand())
	rootCmd.AddCommand(newDraftCommand())
	rootCmd.AddCommand(newJournalCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("api-base-url", defaults.GetString("api.base_url"), "Backend API base URL")
	cmd.PersistentFlags().String("session-token", "", "Session token (overrides env)")
	cmd.PersistentFlags().String("storage-path", defaults.GetString("storage.path"), "Local key-value storage path")
	cmd.PersistentFlags().String("journal-path", defaults.GetString("journal.path"), "Mutation journal database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("dev-address", defaults.GetString("dev.address"), "Development server listen address")

	bindFlag(cmd, "api.base_url", "api-base-url")
	bindFlag(cmd, "api.session_token", "session-token")
	bindFlag(cmd, "storage.path", "storage-path")
	bindFlag(cmd, "journal.path", "journal-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "dev.address", "dev-address")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}
