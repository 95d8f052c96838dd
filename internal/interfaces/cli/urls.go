package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
)

func (a *app) wsURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ws-url [session-id]",
		Short: "Print the session channel URL",
		Long:  "Print the WebSocket URL of the session channel. A random session id is generated when none is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}

			id := uuid.New().String()
			if len(args) == 1 {
				id = args[0]
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), r.SessionURL(domain.SessionID(id)))
			return err
		},
	}
}

func (a *app) resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <relative-url>",
		Short: "Resolve a relative URL to a ws:// or wss:// URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), r.ResolveToWS(args[0]))
			return err
		},
	}
}

func (a *app) httpURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "http-url <path>",
		Short: "Resolve a path against the effective base URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			u, err := r.ResolveHTTP(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), u.String())
			return err
		},
	}
}
