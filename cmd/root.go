package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/config"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/headless"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "gourme7",
	Short: "DeFi agent chat client",
	Long:  `Streams conversations with DeFi agents: live token-by-token responses, tool calls and approvals.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile, cfg.Logging.Preserve); err != nil {
			return err
		}
		defer logger.Close()

		sessionID := viper.GetString("session")
		prompt := viper.GetString("prompt")
		if sessionID == "" || prompt == "" {
			return fmt.Errorf("both --session and --prompt are required")
		}

		runner := headless.NewRunner(cfg)
		defer runner.Cleanup()

		return runner.Run(context.Background(), sessionID, prompt)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default searches ./.gourme7 and XDG config)")

	rootCmd.PersistentFlags().String("server", "", "agent platform base URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.Flags().StringP("session", "s", "", "session id to chat in")
	viper.BindPFlag("session", rootCmd.Flags().Lookup("session"))

	rootCmd.Flags().StringP("prompt", "p", "", "prompt to send")
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))
}
