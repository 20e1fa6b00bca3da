package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smukkama/wind-alert-bot/internal/database"
	"github.com/smukkama/wind-alert-bot/internal/stats"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily usage counters",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "number of days to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	db, err := database.Connect(cmd.Context(), current.cfg.Database.ConnectionString(), current.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := stats.NewRecorder(db.RepositoryFactory(), nil).StatsHistory(cmd.Context(), statsDays)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), records)
	return nil
}

func printStats(w io.Writer, records []stats.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no stats recorded yet")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tMESSAGES\tWEATHER\tFORECAST\tLANGUAGE\tCHECKS\tALERTS\tUSERS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Period.Format("2006-01-02"), r.MessagesProcessed, r.WeatherCommands, r.ForecastCommands,
			r.LanguageCommands, r.ScheduledChecks, r.AlertsSent, r.ActiveUsers)
	}
	tw.Flush()
}
