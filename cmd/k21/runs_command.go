package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"k21/internal/records"
	"k21/internal/services"
)

type runReport struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	State       string    `json:"state"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	RecordCount int       `json:"record_count"`
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List runs saved in the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No record store yet; set [store] enabled = true to save runs")
				return nil
			}
			defer store.Close()

			runs, err := store.Runs(cmd.Context())
			if err != nil {
				return err
			}
			reports := make([]runReport, 0, len(runs))
			for _, run := range runs {
				reports = append(reports, runReport(run))
			}
			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, reports)
			}
			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stored runs")
				return nil
			}
			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				rows = append(rows, []string{
					r.ID,
					r.Source,
					r.State,
					r.StartedAt.Local().Format(time.DateTime),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
					strconv.Itoa(r.RecordCount),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Source", "State", "Started", "Elapsed", "Records"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print the text records of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			if store == nil {
				return services.Wrap(services.ErrNotFound, "cli", "runs", "record store does not exist", nil)
			}
			defer store.Close()

			recs, err := store.Records(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ctx.writeRecords(cmd, recs)
		},
	}
}

// openStore opens the configured record store, or returns nil when the
// database file has never been created.
func (c *commandContext) openStore() (*records.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.Store.Path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("check record store: %w", err)
	}
	return records.Open(cfg.Store.Path)
}
