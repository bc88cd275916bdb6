package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMetadata(t *testing.T, dir, id, name, parent, docType string) {
	t.Helper()
	data, err := json.Marshal(map[string]string{
		"visibleName":  name,
		"parent":       parent,
		"type":         docType,
		"lastModified": "1700000000000",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".metadata"), data, 0o644))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "my-notebook", Slugify("My Notebook"))
	assert.Equal(t, "a-b-c", Slugify("A_B  C!!"))
	assert.Equal(t, "", Slugify("   ---   "))
}

func TestMetadataCacheFolderPath(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "11111111-1111-1111-1111-111111111111", "Archive", "", "CollectionType")
	writeMetadata(t, dir, "22222222-2222-2222-2222-222222222222", "Projects", "11111111-1111-1111-1111-111111111111", "CollectionType")
	writeMetadata(t, dir, "33333333-3333-3333-3333-333333333333", "Notes", "22222222-2222-2222-2222-222222222222", "DocumentType")

	cache := NewMetadataCache(dir)
	assert.Equal(t, "archive/projects", cache.FolderPath("33333333-3333-3333-3333-333333333333"))

	doc, ok := cache.Get("33333333-3333-3333-3333-333333333333")
	require.True(t, ok)
	assert.Equal(t, "Notes", doc.Name)
	assert.False(t, doc.IsFolder())
}

func TestMetadataCacheDocumentsExcludesFoldersAndTrash(t *testing.T) {
	dir := t.TempDir()
	writeMetadata(t, dir, "11111111-1111-1111-1111-111111111111", "Folder", "", "CollectionType")
	writeMetadata(t, dir, "22222222-2222-2222-2222-222222222222", "Live Doc", "", "DocumentType")
	writeMetadata(t, dir, "33333333-3333-3333-3333-333333333333", "Trashed Doc", "trash", "DocumentType")

	cache := NewMetadataCache(dir)
	docs, err := cache.Documents(false)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Live Doc", docs[0].Name)

	docs, err = cache.Documents(true)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestMetadataCacheIgnoresNonUUIDFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-a-uuid.metadata"), []byte(`{}`), 0o644))

	cache := NewMetadataCache(dir)
	docs, err := cache.Documents(true)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSidecarOraclePageOrderFromFlatContent(t *testing.T) {
	dir := t.TempDir()
	docID := "44444444-4444-4444-4444-444444444444"
	content := map[string]any{"pages": []string{"p1", "p2", "p3"}}
	data, err := json.Marshal(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, docID+".content"), data, 0o644))

	o := NewSidecarOracle(dir)
	order, err := o.PageOrder(docID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3"}, order)
}

func TestSidecarOraclePageOrderFromCPagesContent(t *testing.T) {
	dir := t.TempDir()
	docID := "55555555-5555-5555-5555-555555555555"
	raw := `{"cPages":{"pages":[{"id":"pb","redir":{"value":1}},{"id":"pa","redir":{"value":0}}]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, docID+".content"), []byte(raw), 0o644))

	o := NewSidecarOracle(dir)
	order, err := o.PageOrder(docID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pa", "pb"}, order)
}

func TestSidecarOraclePageOrderFallsBackToRmFiles(t *testing.T) {
	dir := t.TempDir()
	docID := "66666666-6666-6666-6666-666666666666"
	docDir := filepath.Join(dir, docID)
	require.NoError(t, os.MkdirAll(docDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "pageA.rm"), []byte{}, 0o644))

	o := NewSidecarOracle(dir)
	order, err := o.PageOrder(docID)
	require.NoError(t, err)
	assert.Equal(t, []string{"pageA"}, order)
}

func TestSidecarOraclePageSizeAbsentWithoutSidecarPDF(t *testing.T) {
	dir := t.TempDir()
	docID := "77777777-7777-7777-7777-777777777777"
	require.NoError(t, os.WriteFile(filepath.Join(dir, docID+".content"), []byte(`{"pages":["p1"]}`), 0o644))

	o := NewSidecarOracle(dir)
	_, ok := o.PageSize(docID, "p1")
	assert.False(t, ok)
}
