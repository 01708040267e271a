// Package formats is the static registry of content formats: the kind-specific fields
// each format clones, which of its fields hold govspeak, how its text is indexed and
// which cross-format migrations exist.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"edition-publisher/govspeak"
	"edition-publisher/models"
)

// Spec describes one content format.
type Spec struct {
	Format models.Format
	// Kind is the artefact kind used for slug validation when no artefact is at hand.
	Kind string
	// Parted formats own ordered parts.
	Parted bool
	// CloneFields are the Details keys copied when cloning into the same format.
	CloneFields []string
	// RichTextFields are validated as govspeak. Names are edition field names,
	// "overview" for the base field or "details.<key>" for payload keys.
	RichTextFields []string
	// IndexableFields are Details keys whose extracted text leads the indexable content.
	IndexableFields []string
	// WholeBody concatenates the body-like fields, used by cross-format migrations.
	WholeBody func(e *models.Edition) string
	// Setup seeds a brand new first edition.
	Setup func(e *models.Edition)
	// Validate adds format-specific field errors.
	Validate func(e *models.Edition, errs *models.ErrorValidation)
}

// IsRichText reports whether field (in Snapshot naming) holds govspeak.
func (s *Spec) IsRichText(field string) bool {
	if field == "parts" {
		return s.Parted
	}
	for _, f := range s.RichTextFields {
		if f == field {
			return true
		}
	}
	return false
}

// Migration moves content between formats during a cross-format clone.
type Migration func(src, dst *models.Edition)

type pair struct {
	from, to models.Format
}

var (
	specs      = map[models.Format]*Spec{}
	migrations = map[pair]Migration{}
)

func register(s *Spec) {
	specs[s.Format] = s
}

// RegisterMigration adds a cross-format migration. Only registered pairs migrate content;
// every other cross-format clone copies the base fields only.
func RegisterMigration(from, to models.Format, m Migration) {
	migrations[pair{from, to}] = m
}

// Lookup returns the spec of a format.
func Lookup(f models.Format) (*Spec, error) {
	s, ok := specs[f]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", f)
	}
	return s, nil
}

// MustLookup is Lookup for formats already known to be registered.
func MustLookup(f models.Format) *Spec {
	s, err := Lookup(f)
	if err != nil {
		panic(err)
	}
	return s
}

// MigrationFor returns the migration registered for a pair, if any.
func MigrationFor(from, to models.Format) (Migration, bool) {
	m, ok := migrations[pair{from, to}]
	return m, ok
}

// All returns the registered formats, sorted.
func All() []models.Format {
	out := make([]models.Format, 0, len(specs))
	for f := range specs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KindFor returns the slug validation kind of a format.
func KindFor(f models.Format) string {
	if s, ok := specs[f]; ok && s.Kind != "" {
		return s.Kind
	}
	return string(f)
}

// IndexableContent is the plain text submitted for search: the format's indexable fields
// followed, for parted formats, by each part's title and body.
func IndexableContent(e *models.Edition) string {
	s, err := Lookup(e.Format)
	if err != nil {
		return ""
	}

	var chunks []string
	for _, f := range s.IndexableFields {
		chunks = append(chunks, govspeak.ToText(e.Detail(f)))
	}
	if s.Parted {
		for _, p := range SortedParts(e.Parts) {
			chunks = append(chunks, p.Title, govspeak.ToText(p.Body))
		}
	}

	nonEmpty := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}
	return strings.TrimSpace(strings.Join(nonEmpty, " "))
}

// SortedParts returns parts ordered by their order index.
func SortedParts(parts []models.Part) []models.Part {
	out := append([]models.Part(nil), parts...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func detailBody(e *models.Edition) string {
	return e.Detail("body")
}

func partsBody(e *models.Edition) string {
	var chunks []string
	for _, p := range SortedParts(e.Parts) {
		chunks = append(chunks, fmt.Sprintf("# %s\n\n%s", p.Title, p.Body))
	}
	return strings.Join(chunks, "\n\n")
}
