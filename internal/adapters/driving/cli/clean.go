package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var cleanOut string

var cleanCmd = &cobra.Command{
	Use:   "clean [chunk-dir]",
	Short: "Re-clean chunk files",
	Long: `Runs every chunk in the directory (default "data_chunks") through the text
cleaner again and writes the chunks that still carry usable text to the
output directory, keeping file names.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanOut, "out", "o", defaultCleanChunkDir, "directory for cleaned chunk files")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	dir := defaultChunkDir
	if len(args) > 0 {
		dir = args[0]
	}

	svc, err := openServices(cmd, 0, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	reports, err := svc.Ingest.CleanChunks(cmd.Context(), dir, cleanOut)
	if err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}
	if len(reports) == 0 {
		cmd.Printf("No chunk files found in %s\n", dir)
		return nil
	}

	kept, total := 0, 0
	for _, r := range reports {
		cmd.Printf("  %s: kept %d of %d chunks", filepath.Base(r.Path), r.Kept, r.Total)
		if r.Skipped > 0 {
			cmd.Printf(" (%d malformed)", r.Skipped)
		}
		cmd.Println()
		kept += r.Kept
		total += r.Total
	}
	cmd.Println()
	cmd.Printf("Kept %d of %d chunks in %d files -> %s\n", kept, total, len(reports), cleanOut)
	return nil
}
