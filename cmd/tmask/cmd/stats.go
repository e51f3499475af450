package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mapping counts by value type",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, stats)
	}

	PrintTableHeader(out, "TYPE", "MAPPINGS")
	for _, t := range pseudonym.ValueTypes() {
		fmt.Fprintf(out, "%s\t%d\n", t, stats.ByType[t])
	}
	fmt.Fprintln(out, Dim("total\t%d", stats.TotalMappings))
	return nil
}
