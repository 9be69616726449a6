package server

import (
	"context"
	"fmt"

	"github.com/mwantia/gocatalog/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/gocatalog/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the GoCatalog agent",
		Long: `Start the GoCatalog agent.

The agent keeps the catalog store open and reconciles it against the
library root every catalog.sync_interval until it is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			return agent.NewAgent(cfg).Serve(context.Background())
		},
	}

	return cmd
}
