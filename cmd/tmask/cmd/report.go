package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/reident"
)

var (
	reportFormat     string
	reportKind       string
	reportUnresolved bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Restore pseudonyms in structured reports",
}

var reportDeanonymizeCmd = &cobra.Command{
	Use:   "deanonymize",
	Short: "Restore every pseudonym in a report, finding or evidence item",
	Long: `Read a report (or a single finding or evidence item with --kind) from stdin
and write it back with every known pseudonym restored: record fields such as
host and user, prose such as description, executive_summary and markdown,
and the findings, evidence, indicators and recommendations nested inside.

Pseudonyms that have no mapping are left in place. With --unresolved they
are listed on stderr.

Examples:
  tmask report deanonymize < report.json > report.clear.json
  tmask report deanonymize --kind finding --format yaml < finding.yaml
  tmask report deanonymize --unresolved < report.json`,
	Args: cobra.NoArgs,
	RunE: runReportDeanonymize,
}

func init() {
	reportDeanonymizeCmd.Flags().StringVar(&reportFormat, "format", formatJSON, "input and output format: json or yaml")
	reportDeanonymizeCmd.Flags().StringVar(&reportKind, "kind", "report", "document kind: report, finding or evidence")
	reportDeanonymizeCmd.Flags().BoolVar(&reportUnresolved, "unresolved", false, "list pseudonyms that could not be restored")
	reportCmd.AddCommand(reportDeanonymizeCmd)
	rootCmd.AddCommand(reportCmd)
}

// reverser picks the re-identification entry point for a document kind.
func reverser(ri *reident.Reidentifier, kind string) (func(context.Context, map[string]any) (map[string]any, error), error) {
	switch strings.ToLower(kind) {
	case "report":
		return ri.DeanonymizeReport, nil
	case "finding":
		return ri.DeanonymizeFinding, nil
	case "evidence":
		return ri.DeanonymizeEvidence, nil
	}
	return nil, fmt.Errorf("unsupported kind %q (want report, finding or evidence)", kind)
}

func runReportDeanonymize(cmd *cobra.Command, _ []string) error {
	format, err := parseFormat(reportFormat)
	if err != nil {
		return err
	}
	doc, err := decodeDocument(cmd.InOrStdin(), format)
	if err != nil {
		return err
	}
	obj, err := asObject(doc)
	if err != nil {
		return err
	}

	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	ri := reident.New(s.engine)
	reverse, err := reverser(ri, reportKind)
	if err != nil {
		return err
	}

	out, err := reverse(ctx, obj)
	if err != nil {
		return fmt.Errorf("failed to deanonymize %s: %w", reportKind, err)
	}
	if err := encodeDocument(cmd.OutOrStdout(), format, out); err != nil {
		return err
	}

	if reportUnresolved {
		left, err := ri.Unresolved(ctx, out)
		if err != nil {
			return fmt.Errorf("failed to count unresolved pseudonyms: %w", err)
		}
		errOut := cmd.ErrOrStderr()
		if len(left) == 0 {
			Success(errOut, "All pseudonyms restored")
			return nil
		}
		Warning(errOut, "%d unresolved pseudonyms remain", len(left))
		for _, tok := range left {
			fmt.Fprintf(errOut, "  %s\n", tok)
		}
	}
	return nil
}
