package validators

import (
	"fmt"
	"regexp"
	"strings"

	"edition-publisher/models"
)

var partSlugFormat = regexp.MustCompile(`(?i)^[a-z0-9-]+$`)

// ValidatePart checks a single part. Field names are relative to the part.
func ValidatePart(p models.Part) *models.ErrorValidation {
	errs := models.NewErrorValidation()

	if strings.TrimSpace(p.Title) == "" {
		errs.Add("title", "can't be blank")
	}
	switch {
	case strings.TrimSpace(p.Slug) == "":
		errs.Add("slug", "can't be blank")
	case !partSlugFormat.MatchString(p.Slug):
		errs.Add("slug", "is invalid")
	case p.Slug == "video":
		errs.Add("slug", "Can not be video")
	}
	return errs
}

// ValidateParts checks every part and the uniqueness of their slugs. Errors are reported
// as parts.<index>.<field>.
func ValidateParts(parts []models.Part) *models.ErrorValidation {
	errs := models.NewErrorValidation()
	seen := map[string]int{}

	for i, p := range parts {
		prefix := fmt.Sprintf("parts.%d", i)
		errs.Merge(prefix, ValidatePart(p))

		if p.Slug == "" {
			continue
		}
		key := strings.ToLower(p.Slug)
		if first, dup := seen[key]; dup {
			errs.Add(prefix+".slug", fmt.Sprintf("has already been taken by part %d", first))
			continue
		}
		seen[key] = i
	}
	return errs
}
