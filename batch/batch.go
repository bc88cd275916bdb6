package batch

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kj-111/remarkable-backup/layout"
)

// Options controls ExportAll's behavior.
type Options struct {
	// Force disables the incremental skip: every document is re-exported
	// regardless of output mtime vs. the document's lastModified sidecar
	// field.
	Force bool

	// OnProgress, if set, is called once per document after it is exported,
	// skipped, or failed. Called from worker goroutines; implementations
	// must be safe for concurrent use.
	OnProgress func(item ProgressEvent)
}

// ProgressEvent reports the outcome of one document's export attempt.
type ProgressEvent struct {
	Name    string
	Skipped bool
	Err     error
	Result  Result
}

// Stats tallies the outcome of a full batch run.
type Stats struct {
	Exported int
	Skipped  int
	Failed   int
}

// ExportAll walks every document sidecar under backupDir and exports each to
// a PDF under outputDir, mirroring the backup's folder structure. Workers
// run with bounded concurrency (runtime.NumCPU()-1, floor 1); each worker
// owns its own parser, Document, and Canvas — no state is shared across
// goroutines, matching spec.md §5's confinement requirement.
func ExportAll(backupDir, outputDir string, opts Options) (Stats, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Stats{}, errors.Wrap(err, "batch: create output dir")
	}

	cache := layout.NewMetadataCache(backupDir)
	docs, err := cache.Documents(false)
	if err != nil {
		return Stats{}, errors.Wrap(err, "batch: load metadata")
	}

	oracle := layout.NewSidecarOracle(backupDir)

	type workItem struct {
		doc        layout.DocumentInfo
		outputPath string
	}
	var work []workItem
	stats := Stats{}

	for _, doc := range docs {
		name := layout.Slugify(doc.Name) + ".pdf"
		outputPath := filepath.Join(outputDir, name)
		if folder := cache.FolderPath(doc.ID); folder != "" {
			outputPath = filepath.Join(outputDir, folder, name)
		}

		if !opts.Force && isUpToDate(outputPath, doc.LastModified) {
			stats.Skipped++
			if opts.OnProgress != nil {
				opts.OnProgress(ProgressEvent{Name: doc.Name, Skipped: true})
			}
			continue
		}

		work = append(work, workItem{doc: doc, outputPath: outputPath})
	}

	if len(work) == 0 {
		return stats, nil
	}

	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}

	var eg errgroup.Group
	eg.SetLimit(workers)

	// Each goroutine only ever touches its own workItem and appends to its
	// own result slot; no shared mutable state, so no locking is needed.
	results := make([]error, len(work))
	for i, item := range work {
		i, item := i, item
		eg.Go(func() error {
			res, err := exportDocument(backupDir, oracle, item.doc, item.outputPath)
			results[i] = err
			if opts.OnProgress != nil {
				opts.OnProgress(ProgressEvent{Name: item.doc.Name, Err: err, Result: res})
			}
			return nil // collect per-item failures in results; don't abort the batch
		})
	}
	eg.Wait()

	for _, err := range results {
		if err != nil {
			stats.Failed++
		} else {
			stats.Exported++
		}
	}
	return stats, nil
}

// isUpToDate reports whether outputPath exists and was modified no earlier
// than the source document's lastModified timestamp (epoch milliseconds).
func isUpToDate(outputPath string, lastModifiedMs int64) bool {
	info, err := os.Stat(outputPath)
	if err != nil {
		return false
	}
	outputMs := info.ModTime().UnixMilli()
	return outputMs >= lastModifiedMs || lastModifiedMs == 0
}
