// Package catalog reads the static PDF catalog and filters its entries.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mrlokans/pdflibrary/internal/entities"
)

var (
	ErrMissingID   = errors.New("catalog entry has no id")
	ErrDuplicateID = errors.New("duplicate catalog id")
)

// Entry is one PDF as listed in the catalog file.
type Entry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Pages       int    `json:"pages"`
	Size        string `json:"size"`
	Thumbnail   string `json:"thumbnail"`
	Featured    bool   `json:"featured"`
}

// File mirrors the catalog JSON layout.
type File struct {
	PublicPDFs  []Entry `json:"public_pdfs"`
	PremiumPDFs []Entry `json:"premium_pdfs"`
}

// Catalog is a parsed catalog together with the checksum of its source.
type Catalog struct {
	File
	Checksum string
}

// LoadFile reads and parses the catalog at path.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes raw catalog JSON. Ids must be present and unique across
// both sections.
func Parse(raw []byte) (*Catalog, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.PublicPDFs)+len(f.PremiumPDFs))
	for _, section := range [][]Entry{f.PublicPDFs, f.PremiumPDFs} {
		for i, e := range section {
			id := strings.TrimSpace(e.ID)
			if id == "" {
				return nil, fmt.Errorf("%w (title %q)", ErrMissingID, e.Title)
			}
			if seen[id] {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			seen[id] = true
			section[i].ID = id
		}
	}

	return &Catalog{File: f, Checksum: Checksum(raw)}, nil
}

// Checksum returns the hex sha256 of raw.
func Checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// ToDocuments flattens the catalog into mirror rows, public entries first,
// keeping file order in Position.
func (c *Catalog) ToDocuments(syncedAt time.Time) []entities.Document {
	docs := make([]entities.Document, 0, len(c.PublicPDFs)+len(c.PremiumPDFs))
	add := func(e Entry, premium bool) {
		docs = append(docs, entities.Document{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Category:    e.Category,
			Pages:       e.Pages,
			Size:        e.Size,
			Thumbnail:   e.Thumbnail,
			Featured:    e.Featured,
			Premium:     premium,
			Position:    len(docs),
			SyncedAt:    syncedAt,
		})
	}
	for _, e := range c.PublicPDFs {
		add(e, false)
	}
	for _, e := range c.PremiumPDFs {
		add(e, true)
	}
	return docs
}

// Query narrows a document list. Zero value matches everything.
type Query struct {
	Text     string
	Category string
}

// Matches reports whether doc satisfies the query. Text is matched
// case-insensitively as a substring of title, description or category;
// Category must match exactly.
func (q Query) Matches(doc entities.Document) bool {
	if q.Category != "" && doc.Category != q.Category {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Title), text) ||
		strings.Contains(strings.ToLower(doc.Description), text) ||
		strings.Contains(strings.ToLower(doc.Category), text)
}

// Filter returns the documents matching q, preserving order.
func Filter(docs []entities.Document, q Query) []entities.Document {
	out := make([]entities.Document, 0, len(docs))
	for _, d := range docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the sorted distinct categories of docs.
func Categories(docs []entities.Document) []string {
	set := make(map[string]struct{})
	for _, d := range docs {
		if d.Category != "" {
			set[d.Category] = struct{}{}
		}
	}
	cats := make([]string, 0, len(set))
	for c := range set {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
