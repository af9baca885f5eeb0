package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"stockcount-api/internal/app"
	"stockcount-api/internal/model"
	"stockcount-api/internal/report"

	"github.com/spf13/cobra"
)

// opener builds the application for one command invocation.
type opener func(ctx context.Context) (*app.App, error)

type cli struct {
	open   opener
	online bool
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	rootCmd := &cobra.Command{
		Use:   "stockctl",
		Short: "Operate the stock count cache from the command line",
		Long: `stockctl synchronizes the local inventory cache with the remote tables,
queries reconciled counts, and submits locally captured items.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVar(&c.online, "online", false, "Force a remote read instead of serving from cache")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh every table cache from the remote",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(runSync),
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show completed and pending counts",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(c.runStatus),
	}

	lookupCmd := &cobra.Command{
		Use:   "lookup <barcode>",
		Short: "Look up a Comparison record by barcode",
		Args:  cobra.ExactArgs(1),
		RunE:  c.withApp(c.runLookup),
	}

	namesCmd := &cobra.Command{
		Use:   "names <code>...",
		Short: "Resolve product codes to names",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.withApp(runNames),
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reconciled view to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(c.runExport),
	}
	exportCmd.Flags().StringP("out", "o", "inventory-status.xlsx", "Output file")

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Manage locally captured items",
	}
	pendingListCmd := &cobra.Command{
		Use:   "list",
		Short: "List items awaiting submission",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(runPendingList),
	}
	pendingSubmitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit every pending item to the Results table",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(runPendingSubmit),
	}
	pendingCmd.AddCommand(pendingListCmd, pendingSubmitCmd)

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Show cache sizes and last sync times",
		Args:  cobra.NoArgs,
		RunE:  c.withApp(runCache),
	}

	rootCmd.AddCommand(syncCmd, statusCmd, lookupCmd, namesCmd, exportCmd, pendingCmd, cacheCmd)
	return rootCmd
}

type runFunc func(cmd *cobra.Command, args []string, a *app.App) error

// withApp opens the application around a command and closes it afterwards.
func (c *cli) withApp(run runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.open(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open application: %w", err)
		}
		defer a.Close()
		return run(cmd, args, a)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSync(cmd *cobra.Command, args []string, a *app.App) error {
	result := a.Service.Sync(cmd.Context())
	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("sync incomplete: %s", result.Summary)
	}
	return nil
}

func (c *cli) runStatus(cmd *cobra.Command, args []string, a *app.App) error {
	return printJSON(cmd.OutOrStdout(), a.Service.StatusSummary(cmd.Context(), c.online))
}

func (c *cli) runLookup(cmd *cobra.Command, args []string, a *app.App) error {
	res := a.Service.LookupByBarcode(cmd.Context(), args[0], c.online)
	if !res.Found {
		return fmt.Errorf("no record for barcode %s (source: %s)", args[0], res.Source)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runNames(cmd *cobra.Command, args []string, a *app.App) error {
	codes := make([]int, 0, len(args))
	for _, arg := range args {
		code, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid product code %q", arg)
		}
		codes = append(codes, code)
	}
	return printJSON(cmd.OutOrStdout(), a.Service.ResolveProductNames(cmd.Context(), codes))
}

func (c *cli) runExport(cmd *cobra.Command, args []string, a *app.App) error {
	out, _ := cmd.Flags().GetString("out")
	ctx := cmd.Context()

	rows := a.Service.ComparisonWithStatus(ctx, c.online)
	summary := a.Service.StatusSummary(ctx, c.online)

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := report.WriteReconciled(f, rows.Value, summary, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(rows.Value), out)
	return nil
}

func runPendingList(cmd *cobra.Command, args []string, a *app.App) error {
	items, err := a.Service.PendingItems(cmd.Context())
	if err != nil {
		return err
	}
	if items == nil {
		items = []model.ScannedItem{}
	}
	return printJSON(cmd.OutOrStdout(), items)
}

func runPendingSubmit(cmd *cobra.Command, args []string, a *app.App) error {
	res := a.Service.SubmitPending(cmd.Context())
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d items failed", len(res.Errors))
	}
	return nil
}

func runCache(cmd *cobra.Command, args []string, a *app.App) error {
	return printJSON(cmd.OutOrStdout(), a.Service.CacheOverview())
}
