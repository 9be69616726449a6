package main

import (
	"fmt"
	"os"

	"github.com/mwantia/gocatalog/cmd/gocatalog/cli"
	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/client"
	"github.com/mwantia/gocatalog/cmd/gocatalog/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())

	root.AddCommand(client.NewIngestCommand())
	root.AddCommand(client.NewTagsCommand())
	root.AddCommand(client.NewFilesCommand())
	root.AddCommand(client.NewSyncCommand())
	root.AddCommand(client.NewDbCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
