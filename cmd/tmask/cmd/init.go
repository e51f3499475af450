package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the mapping store",
	Long: `Connect to the configured mapping store, create its tables or buckets if
they are missing, and record the namespace metadata.

Running init again is safe: existing mappings are never touched.

Examples:
  TMASK_SALT=... tmask init
  TMASK_STORE_BACKEND=postgres TMASK_DATABASE_URL=postgres://... tmask init`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	start := time.Now().Truncate(time.Millisecond)
	ctx, s, err := openSession(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	meta, err := s.store.GetMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to read namespace metadata: %w", err)
	}

	// A namespace created before this run was already initialized.
	existed := meta.CreatedAt.Before(start)

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"backend":      s.cfg.Store.Backend,
			"namespace_id": meta.NamespaceID,
			"created_at":   meta.CreatedAt.Format(time.RFC3339),
			"existed":      existed,
		})
	}

	if existed {
		Info(out, "Mapping store already initialized (%s)", s.cfg.Store.Backend)
	} else {
		Success(out, "Mapping store ready (%s)", s.cfg.Store.Backend)
	}
	PrintKeyValue(out, "Namespace", meta.NamespaceID)
	PrintKeyValue(out, "Created", meta.CreatedAt.Format(time.RFC3339))
	return nil
}
