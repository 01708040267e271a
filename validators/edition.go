package validators

import (
	"reflect"
	"sort"
	"strings"

	"edition-publisher/formats"
	"edition-publisher/models"
)

// EditionValidator runs the save-time checks of an edition.
type EditionValidator struct {
	Content ContentValidator
}

func NewEditionValidator() *EditionValidator {
	return &EditionValidator{Content: SafeHTML{}}
}

// Validate checks e before it is stored. kind is the artefact kind used for the slug
// grammar; when empty the format's kind is used. before is the snapshot taken when the
// edition was read, nil for a new edition; only fields that changed since then go through
// the content validator.
func (v *EditionValidator) Validate(e *models.Edition, kind string, before map[string]interface{}) error {
	errs := models.NewErrorValidation()

	if strings.TrimSpace(e.Title) == "" {
		errs.Add("title", "can't be blank")
	}
	if e.DocumentID == "" {
		errs.Add("document_id", "can't be blank")
	}
	if e.VersionNumber <= 0 {
		errs.Add("version_number", "must be greater than 0")
	}
	if !e.State.Valid() {
		errs.Add("state", "is not included in the list")
	}

	spec, err := formats.Lookup(e.Format)
	if err != nil {
		errs.Add("format", "is not included in the list")
		return errs.OrNil()
	}

	if kind == "" {
		kind = spec.Kind
		if kind == "" {
			kind = string(e.Format)
		}
	}
	if e.Slug == "" {
		errs.Add("slug", "can't be blank")
	} else if res := ValidateSlug(kind, e.Slug); !res.Valid {
		for _, r := range res.Reasons {
			errs.Add("slug", r)
		}
	}

	if spec.Parted {
		errs.Merge("", ValidateParts(e.Parts))
	} else if len(e.Parts) > 0 {
		errs.Add("parts", "are not supported by this format")
	}
	if spec.Validate != nil {
		spec.Validate(e, errs)
	}

	v.checkContent(spec, e, before, errs)

	return errs.OrNil()
}

func (v *EditionValidator) checkContent(spec *formats.Spec, e *models.Edition, before map[string]interface{}, errs *models.ErrorValidation) {
	content := v.Content
	if content == nil {
		content = SafeHTML{}
	}
	after := e.Snapshot()
	for _, field := range ChangedFields(before, after) {
		CheckValue(content, field, after[field], spec.IsRichText(field), errs)
	}
}

// ChangedFields lists, sorted, the keys whose values differ between two snapshots.
// A nil before means every field of after is new.
func ChangedFields(before, after map[string]interface{}) []string {
	var out []string
	for k, a := range after {
		if before != nil {
			if b, ok := before[k]; ok && reflect.DeepEqual(a, b) {
				continue
			}
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
