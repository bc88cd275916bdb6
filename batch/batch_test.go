package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kj-111/remarkable-backup/internal/tagged"
	"github.com/kj-111/remarkable-backup/render"
	"github.com/kj-111/remarkable-backup/rm"
)

func writeMetadata(t *testing.T, dir, id, name string) {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"visibleName":  name,
		"type":         "DocumentType",
		"lastModified": "1700000000000",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".metadata"), data, 0o644))
}

func writeMinimalPDF(t *testing.T, path string) {
	t.Helper()
	canvas := render.NewPDFCanvas()
	renderer := render.NewRenderer(canvas)
	doc := &rm.Document{Layers: []rm.Layer{{Name: "Layer 1", Visible: true}}}
	require.NoError(t, renderer.RenderDocument(doc, render.DefaultPageSize))

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, canvas.WriteTo(f))
}

func TestIsUpToDate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	future := time.Now().Add(time.Hour).UnixMilli()
	past := time.Now().Add(-time.Hour).UnixMilli()

	assert.True(t, isUpToDate(path, past))
	assert.False(t, isUpToDate(path, future))
	assert.False(t, isUpToDate(filepath.Join(dir, "missing.pdf"), past))
}

func TestExportAllCountsFailureWhenNoPDFAndNoPages(t *testing.T) {
	backupDir := t.TempDir()
	outDir := t.TempDir()
	writeMetadata(t, backupDir, "11111111-1111-1111-1111-111111111111", "Empty Doc")

	var events []ProgressEvent
	stats, err := ExportAll(backupDir, outDir, Options{OnProgress: func(e ProgressEvent) {
		events = append(events, e)
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, events, 1)
	assert.Error(t, events[0].Err)
}

func TestExportAllRendersFreshPDFWhenNoSidecar(t *testing.T) {
	backupDir := t.TempDir()
	outDir := t.TempDir()
	docID := "22222222-2222-2222-2222-222222222222"
	writeMetadata(t, backupDir, docID, "Notebook Only")

	docDir := filepath.Join(backupDir, docID)
	require.NoError(t, os.MkdirAll(docDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "page1.rm"), []byte(tagged.Header), 0o644))

	stats, err := ExportAll(backupDir, outDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Exported)
	require.FileExists(t, filepath.Join(outDir, "notebook-only.pdf"))
}

func TestExportAllExportsAndThenSkipsOnRerun(t *testing.T) {
	backupDir := t.TempDir()
	outDir := t.TempDir()
	docID := "33333333-3333-3333-3333-333333333333"
	writeMetadata(t, backupDir, docID, "Good Doc")
	writeMinimalPDF(t, filepath.Join(backupDir, docID+".pdf"))

	docDir := filepath.Join(backupDir, docID)
	require.NoError(t, os.MkdirAll(docDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "page1.rm"), []byte(tagged.Header), 0o644))

	stats, err := ExportAll(backupDir, outDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Exported)
	assert.Equal(t, 0, stats.Skipped)

	outputPath := filepath.Join(outDir, "good-doc.pdf")
	require.FileExists(t, outputPath)

	stats, err = ExportAll(backupDir, outDir, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Exported)
	assert.Equal(t, 1, stats.Skipped)

	stats, err = ExportAll(backupDir, outDir, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Exported)
}
