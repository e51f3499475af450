package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/pseudonym"
)

// errNoMapping is returned when a pseudonym is not in the store.
var errNoMapping = errors.New("no mapping found")

var (
	deanonymizeType  string
	deanonymizeExact bool
)

var deanonymizeCmd = &cobra.Command{
	Use:   "deanonymize <pseudonym>",
	Short: "Restore the original value of a pseudonym",
	Long: `Print the original value behind a pseudonym.

The --type hint is tried first, then every other type in a fixed order.
Use --exact to search only the hinted type.

Examples:
  tmask deanonymize host-k3j2m4n5p6q7.local --type hostname
  tmask deanonymize user_abcdefghijkl --type username --exact`,
	Args: cobra.ExactArgs(1),
	RunE: runDeanonymize,
}

func init() {
	deanonymizeCmd.Flags().StringVarP(&deanonymizeType, "type", "t", string(pseudonym.TypeGeneric), "value type hint")
	deanonymizeCmd.Flags().BoolVar(&deanonymizeExact, "exact", false, "do not fall back to other value types")
	rootCmd.AddCommand(deanonymizeCmd)
}

func runDeanonymize(cmd *cobra.Command, args []string) error {
	t, err := pseudonym.ParseValueType(deanonymizeType)
	if err != nil {
		return err
	}

	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		original string
		ok       bool
	)
	if deanonymizeExact {
		original, ok, err = s.engine.Lookup(ctx, args[0], t)
	} else {
		original, ok, err = s.engine.Deanonymize(ctx, args[0], t)
	}
	if err != nil {
		return fmt.Errorf("failed to deanonymize: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w for %q", errNoMapping, args[0])
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"pseudonym": args[0],
			"original":  original,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), original)
	return nil
}
