package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
)

var anonymizeCmd = &cobra.Command{
	Use:   "anonymize <type> <value>",
	Short: "Pseudonymize a single value",
	Long: `Print the pseudonym for a value, creating its mapping if needed.

Types: hostname, username, ip, email, generic.

Examples:
  tmask anonymize hostname server-01.example.com
  tmask anonymize ip 10.0.0.5 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runAnonymize,
}

func init() {
	rootCmd.AddCommand(anonymizeCmd)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	t, err := pseudonym.ParseValueType(args[0])
	if err != nil {
		return err
	}

	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.engine.Anonymize(ctx, args[1], t)
	if err != nil {
		return fmt.Errorf("failed to anonymize: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"value_type": string(t),
			"pseudonym":  p,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), p)
	return nil
}
