package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/finlit/internal/core/domain"
)

var indexReset bool

var indexCmd = &cobra.Command{
	Use:   "index [chunk-files or dirs...]",
	Short: "Load chunk files into the vector store",
	Long: `Embeds chunk files and adds them to the knowledge base. Directories are
expanded to the chunk files they contain (default "data_clean_chunks").

By default only chunks whose content is not already stored are added, so
running index twice over the same files adds nothing the second time.
With --reset the collection is deleted and rebuilt from the given files.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "delete the collection before indexing")
	rootCmd.AddCommand(indexCmd)
}

// chunkPaths expands directories into the chunk files inside them.
func chunkPaths(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{defaultCleanChunkDir}
	}

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := jsonl.ListFiles(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	paths, err := chunkPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No chunk files found. Run 'finlit ingest' and 'finlit clean' first.")
		return nil
	}

	svc, err := openServices(cmd, NeedStore|NeedAI, nil)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.Index == nil {
		return errors.New("index service not configured")
	}

	mode := domain.IndexModeIncremental
	if indexReset {
		mode = domain.IndexModeReset
	}

	report, err := svc.Index.Index(cmd.Context(), paths, mode)
	if err != nil {
		return fmt.Errorf("index failed: %w", err)
	}

	loaded := 0
	for _, f := range report.Files {
		cmd.Printf("  %s: %d chunks", filepath.Base(f.Path), f.Loaded)
		if f.Skipped > 0 {
			cmd.Printf(" (%d skipped)", f.Skipped)
		}
		cmd.Println()
		loaded += f.Loaded
	}
	cmd.Println()
	cmd.Printf("Loaded %d chunks from %d files.\n", loaded, len(report.Files))

	switch {
	case mode == domain.IndexModeReset:
		cmd.Printf("Rebuilt collection with %d records.\n", report.Total)
	case report.Added == 0:
		cmd.Println("No new documents to add.")
	default:
		cmd.Printf("Added %d new records. Collection now holds %d.\n", report.Added, report.Total)
	}
	return nil
}
