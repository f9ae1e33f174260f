package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finlit/internal/connectors/filesystem"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/normalisers/pdf"
)

// Default working directories.
const (
	defaultPDFDir        = "pdfs"
	defaultChunkDir      = "data_chunks"
	defaultCleanChunkDir = "data_clean_chunks"
)

var (
	ingestOut          string
	ingestForce        bool
	ingestWatch        bool
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestOCRThreshold int
	ingestNoImages     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf-dir]",
	Short: "Turn PDFs into chunk files",
	Long: `Extracts the text of every PDF in the directory (default "pdfs"), cleans it
and splits it into overlapping chunks, one JSON Lines file per PDF.

Pages with too little native text are re-read with OCR, and text found in
embedded images is appended to its page. PDFs unchanged since the last run
are skipped unless --force is given. With --watch, finlit keeps running and
ingests PDFs as they are added or updated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestOut, "out", "o", defaultChunkDir, "directory for chunk files")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest PDFs that have not changed")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep watching the directory for new PDFs")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in characters (default from settings)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", -1, "chunk overlap in characters (default from settings)")
	ingestCmd.Flags().IntVar(&ingestOCRThreshold, "ocr-threshold", 0, "minimum page text length before OCR (default from settings)")
	ingestCmd.Flags().BoolVar(&ingestNoImages, "no-images", false, "skip OCR of embedded images")
	rootCmd.AddCommand(ingestCmd)
}

func ingestOverrides(s *domain.AppSettings) {
	if ingestChunkSize > 0 {
		s.Chunking.Size = ingestChunkSize
	}
	if ingestChunkOverlap >= 0 {
		s.Chunking.Overlap = ingestChunkOverlap
	}
	if ingestOCRThreshold > 0 {
		s.Extraction.OCRThreshold = ingestOCRThreshold
	}
	if ingestNoImages {
		s.Extraction.ExtractImages = false
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := defaultPDFDir
	if len(args) > 0 {
		dir = args[0]
	}

	svc, err := openServices(cmd, NeedStore, ingestOverrides)
	if err != nil {
		return err
	}
	defer closeServices(svc)
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}
	svc.Ingest.SetForce(ingestForce)

	ctx := cmd.Context()
	if cfg := svc.Ingest.Pipeline(); len(cfg.Processors) > 0 {
		cmd.Printf("Pipeline: %s\n", strings.Join(cfg.Processors, " -> "))
	}
	batch, err := svc.Ingest.IngestDir(ctx, dir, ingestOut)
	if err != nil {
		printToolHelp(cmd, err)
		return fmt.Errorf("ingest failed: %w", err)
	}
	printBatch(cmd, dir, batch)

	if !ingestWatch {
		return nil
	}
	if svc.Watcher == nil {
		return errors.New("watching is not available")
	}
	return watchAndIngest(ctx, cmd, svc, dir)
}

func printBatch(cmd *cobra.Command, dir string, batch *driving.BatchReport) {
	if len(batch.Files) == 0 {
		cmd.Printf("No PDFs found in %s\n", dir)
		return
	}

	for i := range batch.Files {
		printIngestReport(cmd, &batch.Files[i])
	}
	cmd.Println()
	cmd.Printf("Ingested %d of %d PDFs, %d chunks.\n", batch.Succeeded(), len(batch.Files), batch.Chunks())

	for i := range batch.Files {
		if printToolHelp(cmd, batch.Files[i].Err) {
			break
		}
	}
}

// printToolHelp prints install instructions when err reports a missing
// PDF tool.
func printToolHelp(cmd *cobra.Command, err error) bool {
	if !errors.Is(err, domain.ErrToolNotFound) {
		return false
	}
	cmd.Println()
	cmd.Println(pdf.InstallInstructions())
	return true
}

func printIngestReport(cmd *cobra.Command, r *driving.IngestReport) {
	name := filepath.Base(r.SourcePath)
	switch {
	case r.Err != nil:
		cmd.Printf("  FAILED    %s: %v\n", name, r.Err)
	case r.Unchanged:
		cmd.Printf("  unchanged %s (%d chunks)\n", name, r.Chunks)
	default:
		ocr := ""
		if r.OCRPages > 0 {
			ocr = fmt.Sprintf(", %d OCR", r.OCRPages)
		}
		cmd.Printf("  processed %s -> %s (%d pages%s, %d chunks)\n", name, r.OutputPath, r.Pages, ocr, r.Chunks)
	}
}

func watchAndIngest(ctx context.Context, cmd *cobra.Command, svc *Services, dir string) error {
	changes, err := svc.Watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	cmd.Printf("Watching %s for new PDFs (Ctrl+C to stop)...\n", dir)
	for change := range changes {
		if change.Type == filesystem.ChangeRemoved {
			cmd.Printf("  removed   %s (chunk file kept)\n", filepath.Base(change.Path))
			continue
		}
		report, err := svc.Ingest.IngestFile(ctx, change.Path, ingestOut)
		if err != nil {
			report = &driving.IngestReport{SourcePath: change.Path, Err: err}
		}
		printIngestReport(cmd, report)
		printToolHelp(cmd, report.Err)
	}
	return nil
}
