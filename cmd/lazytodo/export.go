package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Joseda-hg/lazytodo/internal/storage"
)

func exportCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task to stdout in storage order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			tasks := sess.store.Tasks()
			out := cmd.OutOrStdout()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "json":
				data, err := storage.Encode(tasks)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(tasks); err != nil {
					return fmt.Errorf("encode yaml: %w", err)
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown export format %q (want json or yaml)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, yaml)")
	return cmd
}
