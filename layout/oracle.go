// Package layout resolves the page-layout oracle contract: for a given
// document id, the ordered list of page ids and, optionally, each page's
// target output-space dimensions. It also resolves a document's folder path
// within a backup tree, for output directory naming.
package layout

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"

	"github.com/kj-111/remarkable-backup/render"
)

// Oracle is the page-layout oracle (spec.md §6): a read-only mapping from
// document id to ordered page ids, and from (document id, page id) to an
// optional target page size. Callers fall back to render.DefaultPageSize
// when PageSize's second return is false.
type Oracle interface {
	PageOrder(docID string) ([]string, error)
	PageSize(docID, pageID string) (render.PageSize, bool)
}

// DocumentInfo is one entry from a backup tree's .metadata sidecars.
type DocumentInfo struct {
	ID           string
	Name         string
	Parent       string
	Type         string
	LastModified int64
}

// IsFolder reports whether this entry is a collection (folder) rather than
// a document.
func (d DocumentInfo) IsFolder() bool { return d.Type == "CollectionType" }

// IsTrashed reports whether this entry's parent is the trash pseudo-folder.
func (d DocumentInfo) IsTrashed() bool { return d.Parent == "trash" }

type metadataFile struct {
	VisibleName  string `json:"visibleName"`
	Parent       string `json:"parent"`
	Type         string `json:"type"`
	LastModified string `json:"lastModified"`
}

// MetadataCache loads every *.metadata sidecar under a backup directory
// once and answers folder-path and document-listing queries against it.
type MetadataCache struct {
	backupDir string
	items     map[string]DocumentInfo
	loaded    bool
}

// NewMetadataCache returns a cache rooted at backupDir. Nothing is read
// from disk until the first query.
func NewMetadataCache(backupDir string) *MetadataCache {
	return &MetadataCache{backupDir: backupDir}
}

func (c *MetadataCache) load() error {
	if c.loaded {
		return nil
	}
	c.items = make(map[string]DocumentInfo)

	entries, err := os.ReadDir(c.backupDir)
	if err != nil {
		return errors.Wrap(err, "layout: read backup dir")
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".metadata") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".metadata")
		if _, err := uuid.Parse(id); err != nil {
			// Not a document sidecar we recognise; skip rather than fail
			// the whole cache load.
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.backupDir, e.Name()))
		if err != nil {
			continue
		}
		var mf metadataFile
		if err := json.Unmarshal(data, &mf); err != nil {
			continue
		}

		name := mf.VisibleName
		if name == "" {
			name = id
		}
		docType := mf.Type
		if docType == "" {
			docType = "DocumentType"
		}
		lastModified, _ := strconv.ParseInt(mf.LastModified, 10, 64)

		c.items[id] = DocumentInfo{
			ID:           id,
			Name:         name,
			Parent:       mf.Parent,
			Type:         docType,
			LastModified: lastModified,
		}
	}

	c.loaded = true
	return nil
}

// Get returns the DocumentInfo for id, or false if no sidecar matched it.
func (c *MetadataCache) Get(id string) (DocumentInfo, bool) {
	if err := c.load(); err != nil {
		return DocumentInfo{}, false
	}
	d, ok := c.items[id]
	return d, ok
}

// FolderPath walks a document's parent chain to the root, returning a
// slash-joined path of slugified folder names (e.g. "archive/subfolder"),
// or "" if the document lives at the root or its chain is broken.
func (c *MetadataCache) FolderPath(id string) string {
	if err := c.load(); err != nil {
		return ""
	}
	doc, ok := c.items[id]
	if !ok {
		return ""
	}

	var parts []string
	parent := doc.Parent
	for parent != "" && parent != "trash" {
		parentDoc, ok := c.items[parent]
		if !ok {
			break
		}
		parts = append(parts, Slugify(parentDoc.Name))
		parent = parentDoc.Parent
	}

	// Walked child-to-root; reverse for root-to-child display order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// Documents returns every non-folder entry, excluding trashed documents
// unless includeTrash is set.
func (c *MetadataCache) Documents(includeTrash bool) ([]DocumentInfo, error) {
	if err := c.load(); err != nil {
		return nil, err
	}
	var out []DocumentInfo
	for _, d := range c.items {
		if d.IsFolder() {
			continue
		}
		if !includeTrash && d.IsTrashed() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

var (
	slugNonWord    = regexp.MustCompile(`[^\w\s-]`)
	slugWhitespace = regexp.MustCompile(`[\s_]+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// Slugify converts a display name into a filesystem-safe slug: lowercased,
// punctuation stripped, runs of whitespace/underscore collapsed to a single
// hyphen, and leading/trailing hyphens trimmed.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugNonWord.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// contentFile mirrors a reMarkable .content sidecar. Two page-list shapes
// are accepted: the newer flat "pages": ["uuid", ...] form, and the older
// "cPages": {"pages": [{"id": "uuid", "redir": {"value": n}}, ...]} form.
type contentFile struct {
	Pages  []string `json:"pages"`
	CPages struct {
		Pages []struct {
			ID    string `json:"id"`
			Redir struct {
				Value *int `json:"value"`
			} `json:"redir"`
		} `json:"pages"`
	} `json:"cPages"`
}

// readPageOrder parses the page order out of a .content file's bytes,
// preferring the flat "pages" form when present.
func readPageOrder(data []byte) ([]string, error) {
	var cf contentFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, errors.Wrap(err, "layout: decode .content")
	}
	if len(cf.Pages) > 0 {
		return cf.Pages, nil
	}

	type indexed struct {
		id  string
		idx int
	}
	var ordered []indexed
	for i, p := range cf.CPages.Pages {
		if p.ID == "" {
			continue
		}
		idx := i
		if p.Redir.Value != nil {
			idx = *p.Redir.Value
		}
		ordered = append(ordered, indexed{id: p.ID, idx: idx})
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].idx < ordered[j-1].idx; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	ids := make([]string, len(ordered))
	for i, o := range ordered {
		ids[i] = o.id
	}
	return ids, nil
}

// SidecarOracle is the Oracle implementation backed by a xochitl-style
// backup directory: {id}.metadata, {id}.content, {id}/{page}.rm, and an
// optional {id}.pdf whose page rects supply per-page target dimensions.
type SidecarOracle struct {
	backupDir string

	pageOrders map[string][]string
	pageDims   map[string][]render.PageSize // indexed by page position
}

// NewSidecarOracle returns an Oracle rooted at backupDir.
func NewSidecarOracle(backupDir string) *SidecarOracle {
	return &SidecarOracle{
		backupDir:  backupDir,
		pageOrders: make(map[string][]string),
		pageDims:   make(map[string][]render.PageSize),
	}
}

// PageOrder reads and caches docID's .content sidecar. If no .content file
// exists, the page ids are taken from the .rm files present in the
// document's directory (in directory order), matching the degraded-input
// tolerance spec.md §9 documents for the rest of the decoder.
func (o *SidecarOracle) PageOrder(docID string) ([]string, error) {
	if order, ok := o.pageOrders[docID]; ok {
		return order, nil
	}

	contentPath := filepath.Join(o.backupDir, docID+".content")
	data, err := os.ReadFile(contentPath)
	if err == nil {
		order, err := readPageOrder(data)
		if err != nil {
			return nil, err
		}
		if len(order) > 0 {
			o.pageOrders[docID] = order
			return order, nil
		}
	}

	docDir := filepath.Join(o.backupDir, docID)
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return nil, errors.Wrap(err, "layout: no .content and no document directory")
	}
	var order []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".rm") {
			order = append(order, strings.TrimSuffix(e.Name(), ".rm"))
		}
	}
	o.pageOrders[docID] = order
	return order, nil
}

// PageSize returns docID's sidecar PDF's rect for the page at pageID's
// position in its page order, or false if there is no sidecar PDF, the
// page order is unknown, or pageID is not in it. When the PDF has fewer
// pages than the page order, the last PDF page's size is returned.
func (o *SidecarOracle) PageSize(docID, pageID string) (render.PageSize, bool) {
	dims, ok := o.loadPageDims(docID)
	if !ok {
		return render.PageSize{}, false
	}

	order, err := o.PageOrder(docID)
	if err != nil {
		return render.PageSize{}, false
	}
	idx := indexOf(order, pageID)
	if idx < 0 {
		return render.PageSize{}, false
	}

	if idx < len(dims) {
		return dims[idx], true
	}
	if len(dims) > 0 {
		// Fewer PDF pages than .rm pages: reuse the last known page size,
		// matching the original exporter's single-document fallback.
		return dims[len(dims)-1], true
	}
	return render.PageSize{}, false
}

func (o *SidecarOracle) loadPageDims(docID string) ([]render.PageSize, bool) {
	if dims, ok := o.pageDims[docID]; ok {
		return dims, len(dims) > 0
	}

	pdfPath := filepath.Join(o.backupDir, docID+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		o.pageDims[docID] = nil
		return nil, false
	}

	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		o.pageDims[docID] = nil
		return nil, false
	}
	pageDims, err := ctx.XRefTable.PageDims()
	if err != nil {
		o.pageDims[docID] = nil
		return nil, false
	}

	dims := make([]render.PageSize, len(pageDims))
	for i, d := range pageDims {
		dims[i] = render.PageSize{Width: d.Width, Height: d.Height}
	}
	o.pageDims[docID] = dims
	return dims, len(dims) > 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
