package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

type rootOptions struct {
	configPath string
	dataPath   string
	backend    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "lazytodo",
		Short:         "lazytodo - a terminal task list with pins, tags and filters",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.dataPath, "data", "", "data file or sqlite db path")
	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "storage backend (sqlite, file)")

	rootCmd.AddCommand(listCmd(opts))
	rootCmd.AddCommand(addCmd(opts))
	rootCmd.AddCommand(doneCmd(opts))
	rootCmd.AddCommand(pinCmd(opts))
	rootCmd.AddCommand(editCmd(opts))
	rootCmd.AddCommand(rmCmd(opts))
	rootCmd.AddCommand(clearCompletedCmd(opts))
	rootCmd.AddCommand(tagsCmd(opts))
	rootCmd.AddCommand(statsCmd(opts))
	rootCmd.AddCommand(historyCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))

	return rootCmd
}
