package batch

import (
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

// mergePDFs concatenates inputFiles, in order, into a single PDF at
// outputFile. A single input is copied rather than round-tripped through
// pdfcpu's merge machinery.
func mergePDFs(inputFiles []string, outputFile string) error {
	if len(inputFiles) == 0 {
		return errors.New("batch: no pages to merge")
	}
	if len(inputFiles) == 1 {
		return copyFile(inputFiles[0], outputFile)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.MergeCreateFile(inputFiles, outputFile, false, conf); err != nil {
		return errors.Wrap(err, "batch: merge pages")
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "batch: open page")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "batch: create output")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, "batch: copy page")
	}
	return nil
}
