package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/minutes-flow/internal/config"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/store"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

			st, err := store.New(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if status {
				return printStatus(cmd.Context(), st, cmd.OutOrStdout())
			}
			res, err := st.Init(cmd.Context())
			if err != nil {
				return err
			}
			printResult(res, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "show applied and pending migrations without applying")
	return cmd
}

func printResult(res *store.MigrationResult, w io.Writer) {
	if len(res.Applied) == 0 {
		fmt.Fprintln(w, "Schema is up to date.")
		return
	}
	for _, v := range res.Applied {
		fmt.Fprintf(w, "applied %s\n", v)
	}
}

func printStatus(ctx context.Context, st store.Store, w io.Writer) error {
	status, err := st.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED AT")
	for _, e := range status.Applied {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Version, e.Name, e.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, e := range status.Pending {
		fmt.Fprintf(tw, "%s\t%s\tpending\n", e.Version, e.Name)
	}
	return tw.Flush()
}
