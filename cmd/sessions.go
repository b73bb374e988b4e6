package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Keccak1/gourme7-idea-frontend/pkg/config"
	"github.com/Keccak1/gourme7-idea-frontend/pkg/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions on the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		client := session.NewClientWithTimeout(cfg.Server.URL, cfg.Server.Timeout)
		sessions, err := client.List(context.Background())
		if err != nil {
			return err
		}

		for _, s := range sessions {
			name := s.Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s\t%s\n", s.ID, name)
		}
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		client := session.NewClientWithTimeout(cfg.Server.URL, cfg.Server.Timeout)
		return client.Rename(context.Background(), args[0], args[1])
	},
}

func init() {
	sessionsCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(sessionsCmd)
}
