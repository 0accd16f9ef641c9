package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/DeliverySync/internal/core"
)

type reconcileFlags struct {
	dryRun bool
	json   bool
}

func newReconcileCmd() *cobra.Command {
	var f reconcileFlags
	cmd := &cobra.Command{
		Use:   "reconcile FILE",
		Short: "Reconcile one delivery export from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, args[0], f)
		},
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "classify records without writing or notifying")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

func runReconcile(cmd *cobra.Command, path string, f reconcileFlags) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read export: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := a.service.Process(ctx, filepath.Base(path), data, core.ProcessOptions{DryRun: f.dryRun})
	if result != nil {
		out := cmd.OutOrStdout()
		if f.json {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else if err := renderResult(out, result); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("%s (%w)", core.FormatUserError(runErr), runErr)
	}
	return nil
}

// renderResult prints the classified records, the issues and a summary line.
func renderResult(w io.Writer, res *core.Result) error {
	rep := res.Report

	if len(res.NewItems)+len(res.UpdatedItems) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Change", "Order", "Customer", "Email", "Status")
		for _, rec := range res.NewItems {
			if err := table.Append([]string{"new", rec.OrderCode, rec.CustomerName, rec.CustomerEmail, rec.Status.Title()}); err != nil {
				return err
			}
		}
		for _, rec := range res.UpdatedItems {
			if err := table.Append([]string{"updated", rec.OrderCode, rec.CustomerName, rec.CustomerEmail, rec.Status.Title()}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if len(rep.Issues) > 0 {
		table := tablewriter.NewWriter(w)
		table.Header("Issue", "Line", "Order", "Reason")
		for _, issue := range rep.Issues {
			line := ""
			if issue.Line > 0 {
				line = strconv.Itoa(issue.Line)
			}
			if err := table.Append([]string{string(issue.Kind), line, issue.OrderCode, issue.Reason}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	mode := ""
	if rep.DryRun {
		mode = " (dry run)"
	}
	_, err := fmt.Fprintf(w, "run %s%s: %d rows, %d new, %d updated, %d unchanged, %d duplicates, %d issues, %d notifications, %dms\n",
		rep.RunID, mode, rep.RowsRead, rep.New, rep.Updated, rep.Unchanged, rep.Duplicates,
		len(rep.Issues), rep.NotificationsSent, rep.DurationMs)
	return err
}
