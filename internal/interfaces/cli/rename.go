package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/deepkalilabs/marimo-cosmic/internal/domain"
	"github.com/deepkalilabs/marimo-cosmic/internal/infrastructure/kernel"
	"github.com/deepkalilabs/marimo-cosmic/internal/usecases/rename"
)

func (a *app) renameCommand() *cobra.Command {
	var (
		sessionID  string
		userID     string
		notebookID string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rename <filename>",
		Short: "Rename the notebook attached to a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}

			if sessionID == "" {
				sessionID = uuid.New().String()
			}
			if !cmd.Flags().Changed("user-id") {
				userID = a.cfg.UserID
			}
			if !cmd.Flags().Changed("notebook-id") {
				notebookID = a.cfg.NotebookID
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			ch, err := kernel.Dial(ctx, r.SessionURL(domain.SessionID(sessionID)),
				kernel.WithLogger(a.logger.Named("channel")))
			if err != nil {
				return err
			}
			defer ch.Close()

			if err := ch.WaitReady(ctx); err != nil {
				return err
			}

			svc := rename.NewService(ch, r,
				rename.WithOwner(userID, notebookID),
				rename.WithLogger(a.logger.Named("rename")),
			)

			name, err := svc.Rename(ctx, args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
			return err
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "session to attach to (random when empty)")
	cmd.Flags().StringVar(&userID, "user-id", "", "owner user id (env COSMIC_USER_ID)")
	cmd.Flags().StringVar(&notebookID, "notebook-id", "", "notebook id (env COSMIC_NOTEBOOK_ID)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
