package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/tinymask/internal/reident"
)

var textCmd = &cobra.Command{
	Use:   "text",
	Short: "Restore pseudonyms in free text",
}

var textDeanonymizeCmd = &cobra.Command{
	Use:   "deanonymize",
	Short: "Restore every known pseudonym in text read from stdin",
	Long: `Scan text from stdin for pseudonym-shaped tokens and replace each one that
has a mapping with its original value. Everything else is copied unchanged.

Examples:
  tmask text deanonymize < summary.md
  echo "Activity from HOST_12 by USER_03" | tmask text deanonymize`,
	Args: cobra.NoArgs,
	RunE: runTextDeanonymize,
}

func init() {
	textCmd.AddCommand(textDeanonymizeCmd)
	rootCmd.AddCommand(textCmd)
}

func runTextDeanonymize(cmd *cobra.Command, _ []string) error {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	out, err := reident.New(s.engine).DeanonymizeText(ctx, string(data))
	if err != nil {
		return fmt.Errorf("failed to deanonymize text: %w", err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}
