package formats

import (
	"fmt"
	"strings"

	"edition-publisher/models"
)

// TravelAlertStatuses are the permitted alert_status values of travel advice.
var TravelAlertStatuses = []string{
	"avoid_all_but_essential_travel_to_parts",
	"avoid_all_but_essential_travel_to_whole_country",
	"avoid_all_travel_to_parts",
	"avoid_all_travel_to_whole_country",
}

func init() {
	register(&Spec{
		Format:          models.FormatAnswer,
		CloneFields:     []string{"body"},
		RichTextFields:  []string{"overview", "details.body"},
		IndexableFields: []string{"body"},
		WholeBody:       detailBody,
	})

	register(&Spec{
		Format:          models.FormatHelpPage,
		Kind:            "help_page",
		CloneFields:     []string{"body"},
		RichTextFields:  []string{"overview", "details.body"},
		IndexableFields: []string{"body"},
		WholeBody:       detailBody,
	})

	register(&Spec{
		Format:      models.FormatGuide,
		Parted:      true,
		CloneFields: []string{"video_url", "video_summary"},
		WholeBody:   partsBody,
	})

	register(&Spec{
		Format:    models.FormatProgramme,
		Parted:    true,
		WholeBody: partsBody,
		Setup: func(e *models.Edition) {
			if len(e.Parts) > 0 {
				return
			}
			for i, title := range []string{"Overview", "What you'll get", "Eligibility", "How to claim", "Further information"} {
				e.Parts = append(e.Parts, models.Part{Order: i + 1, Title: title, Slug: partSlug(title)})
			}
		},
	})

	register(&Spec{
		Format: models.FormatTransaction,
		CloneFields: []string{
			"introduction", "will_continue_on", "link",
			"more_information", "alternate_methods", "need_to_know",
		},
		RichTextFields: []string{
			"details.introduction", "details.more_information",
			"details.alternate_methods", "details.need_to_know",
		},
		IndexableFields: []string{"introduction", "more_information"},
		WholeBody: func(e *models.Edition) string {
			return strings.Join([]string{e.Detail("link"), e.Detail("introduction"), e.Detail("more_information"), e.Detail("alternate_methods")}, "\n\n")
		},
	})

	register(&Spec{
		Format:          models.FormatSimpleSmartAnswer,
		CloneFields:     []string{"body", "nodes"},
		RichTextFields:  []string{"overview", "details.body"},
		IndexableFields: []string{"body"},
		WholeBody:       detailBody,
	})

	register(&Spec{
		Format:          models.FormatTravelAdvice,
		Kind:            "travel-advice",
		Parted:          true,
		CloneFields:     []string{"country_slug", "alert_status", "summary", "image_id", "document_asset_id"},
		RichTextFields:  []string{"details.summary"},
		IndexableFields: []string{"summary"},
		WholeBody:       partsBody,
		Validate:        validateTravelAdvice,
		Setup: func(e *models.Edition) {
			if e.Detail("country_slug") == "" && strings.HasPrefix(e.Slug, "foreign-travel-advice/") {
				e.SetDetail("country_slug", strings.TrimPrefix(e.Slug, "foreign-travel-advice/"))
			}
		},
	})

	RegisterMigration(models.FormatGuide, models.FormatAnswer, func(src, dst *models.Edition) {
		dst.SetDetail("body", MustLookup(src.Format).WholeBody(src))
	})

	RegisterMigration(models.FormatAnswer, models.FormatGuide, func(src, dst *models.Edition) {
		dst.Parts = []models.Part{{
			Order: 1,
			Title: "Part One",
			Body:  MustLookup(src.Format).WholeBody(src),
			Slug:  "part-one",
		}}
	})
}

func validateTravelAdvice(e *models.Edition, errs *models.ErrorValidation) {
	if e.Detail("country_slug") == "" {
		errs.Add("details.country_slug", "can't be blank")
	}

	statuses, ok := e.Details["alert_status"]
	if !ok || statuses == nil {
		return
	}
	var values []interface{}
	switch v := statuses.(type) {
	case []interface{}:
		values = v
	case []string:
		for _, s := range v {
			values = append(values, s)
		}
	default:
		errs.Add("details.alert_status", "is not in the list")
		return
	}
	for _, v := range values {
		if !contains(TravelAlertStatuses, fmt.Sprint(v)) {
			errs.Add("details.alert_status", "is not in the list")
			return
		}
	}
}

func partSlug(title string) string {
	out := make([]rune, 0, len(title))
	dash := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
			dash = false
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
			dash = false
		case r == '\'':
		default:
			if !dash && len(out) > 0 {
				out = append(out, '-')
				dash = true
			}
		}
	}
	if dash {
		out = out[:len(out)-1]
	}
	return string(out)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
