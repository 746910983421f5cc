package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justsurfingit/extrajob/client"
	"github.com/justsurfingit/extrajob/internal/logging"
	"github.com/justsurfingit/extrajob/internal/syncbus"
	"github.com/justsurfingit/extrajob/internal/view"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var errStreamClosed = errors.New("event stream closed")

func newClient(opts *options) *client.Client {
	return client.New(opts.server, client.WithToken(opts.token))
}

func buildApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <job-id>",
		Short: "Apply to a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := newClient(opts).Apply(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "applied to %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "already applied to %s\n", args[0])
			}
			return nil
		},
	}
}

func buildWithdrawCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <job-id>",
		Short: "Withdraw an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient(opts).Withdraw(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrew from %s\n", args[0])
			return nil
		},
	}
}

func buildApplicationsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "applications",
		Short: "List your applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := newClient(opts).Applications(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), apps)
		},
	}
}

func buildApplicantsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "applicants <job-id>",
		Short: "List applicants for one of your jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := newClient(opts).Applicants(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

// buildWatchCommand mirrors the server's signals onto a local bus and mounts
// a surface that refetches the applied set on each one.
func buildWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print your applied job ids whenever they change",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(opts)
			bus := syncbus.New(logging.Discard())

			surface, err := view.Mount(cmd.Context(), bus, c.RefreshApplied, syncbus.ApplicationsChanged)
			if err != nil {
				return err
			}
			defer surface.Unmount()

			out := cmd.OutOrStdout()
			printSnapshot := func() {
				ids, version, _ := surface.Snapshot()
				fmt.Fprintf(out, "[%d] applied: %s\n", version, strings.Join(ids, ", "))
			}
			// Mount has committed the initial fetch.
			<-surface.Updates()
			printSnapshot()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				if err := c.Bridge(ctx, bus, syncbus.ApplicationsChanged); err != nil {
					return err
				}
				return errStreamClosed
			})
			g.Go(func() error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-surface.Updates():
						printSnapshot()
					}
				}
			})
			err = g.Wait()
			switch {
			case errors.Is(err, errStreamClosed):
				fmt.Fprintln(out, "event stream closed by server")
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		},
	}
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
