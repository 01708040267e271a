// Package validators holds the field grammars checked when an edition is saved:
// slug rules per content kind, the safe-HTML content check and part constraints.
package validators

import (
	"regexp"
	"strings"
)

// SlugResult is the outcome of slug validation. Reasons are human readable and
// attached to the slug field by callers.
type SlugResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

var (
	basicSlug     = regexp.MustCompile(`^[a-z0-9_-]+$`)
	basicSlugDots = regexp.MustCompile(`^[a-z0-9._-]+$`)
)

const (
	reasonUsableInURL   = "must be usable in a url"
	reasonUsableInURLUC = "must be usable in a URL"
)

// WhitehallKinds are the kinds owned by the government publishing app.
var WhitehallKinds = []string{
	"case_study", "consultation", "corporate_information_page", "detailed_guide",
	"document_collection", "fatality_notice", "international_treaty", "news_article",
	"news_story", "policy", "policy_paper", "press_release", "publication", "speech",
	"statistical_data_set", "statistics", "supporting_page", "world_location_news_article",
	"worldwide_priority",
}

// SpecialistDocumentKinds use <finder-slug>/<document-slug> paths.
var SpecialistDocumentKinds = []string{
	"specialist-document", "aaib_report", "cma_case", "drug_safety_update",
	"international_development_fund", "medical_safety_alert",
}

// slugRule is one entry of the ordered rule list. The first rule whose applies
// returns true validates the slug.
type slugRule struct {
	name     string
	applies  func(kind, slug string) bool
	validate func(kind, slug string) []string
}

var slugRules = []slugRule{
	{
		name:     "done",
		applies:  func(_, slug string) bool { return strings.HasPrefix(slug, "done/") },
		validate: afterFirstSlashIsSlug,
	},
	{
		name: "foreign-travel-advice",
		applies: func(kind, slug string) bool {
			return strings.HasPrefix(slug, "foreign-travel-advice/") && kind == "travel-advice"
		},
		validate: afterFirstSlashIsSlug,
	},
	{
		name:    "help-page",
		applies: func(kind, _ string) bool { return kind == "help_page" || kind == "help-page" },
		validate: func(kind, slug string) []string {
			if !strings.HasPrefix(slug, "help/") {
				return []string{"Help page slugs must have a help/ prefix"}
			}
			return afterFirstSlashIsSlug(kind, slug)
		},
	},
	{
		name:    "government",
		applies: func(kind, _ string) bool { return kind != "detailed_guide" && contains(WhitehallKinds, kind) },
		validate: func(_, slug string) []string {
			var reasons []string
			if !strings.HasPrefix(slug, "government/") {
				reasons = append(reasons, "Inside Government slugs must have a government/ prefix")
			}
			if !allSegments(slug, basicSlugDots) {
				reasons = append(reasons, reasonUsableInURLUC)
			}
			return reasons
		},
	},
	{
		name:    "specialist-document",
		applies: func(kind, _ string) bool { return contains(SpecialistDocumentKinds, kind) },
		validate: func(_, slug string) []string {
			var reasons []string
			if len(strings.Split(slug, "/")) != 2 {
				reasons = append(reasons, "must be of form <finder-slug>/<specialist-document-slug>")
			}
			if !allSegments(slug, basicSlug) {
				reasons = append(reasons, reasonUsableInURLUC)
			}
			return reasons
		},
	},
	{
		name:    "specialist-sector",
		applies: func(kind, _ string) bool { return kind == "specialist_sector" },
		validate: func(_, slug string) []string {
			var reasons []string
			if n := len(strings.Split(slug, "/")); n > 2 {
				reasons = append(reasons, "must contain no more than two path segments")
			}
			if !allSegments(slug, basicSlug) {
				reasons = append(reasons, reasonUsableInURLUC)
			}
			return reasons
		},
	},
	{
		name:    "manual",
		applies: func(kind, _ string) bool { return kind == "manual" || kind == "manual-section" },
		validate: func(kind, slug string) []string {
			var reasons []string
			want := 2
			if kind == "manual-section" {
				want = 3
			}
			segments := strings.Split(slug, "/")
			if segments[0] != "guidance" {
				reasons = append(reasons, "must have a guidance/ prefix")
			}
			if len(segments) != want {
				reasons = append(reasons, "must be of form guidance/<manual-slug>"+strings.Repeat("/<section-slug>", want-2))
			}
			if !allSegments(slug, basicSlug) {
				reasons = append(reasons, reasonUsableInURLUC)
			}
			return reasons
		},
	},
	{
		name:    "manual-change-history",
		applies: func(kind, _ string) bool { return kind == "manual-change-history" },
		validate: func(_, slug string) []string {
			var reasons []string
			segments := strings.Split(slug, "/")
			if len(segments) != 3 || segments[0] != "guidance" || segments[2] != "updates" {
				reasons = append(reasons, "must be of form guidance/<manual-slug>/updates")
			}
			if !allSegments(slug, basicSlug) {
				reasons = append(reasons, reasonUsableInURLUC)
			}
			return reasons
		},
	},
	{
		name:    "default",
		applies: func(string, string) bool { return true },
		validate: func(_, slug string) []string {
			if !basicSlug.MatchString(slug) {
				return []string{reasonUsableInURL}
			}
			return nil
		},
	},
}

// ValidateSlug checks slug against the first rule applicable to kind. It never fails;
// problems are reported through the result.
func ValidateSlug(kind, slug string) SlugResult {
	for _, rule := range slugRules {
		if !rule.applies(kind, slug) {
			continue
		}
		reasons := rule.validate(kind, slug)
		return SlugResult{Valid: len(reasons) == 0, Reasons: reasons}
	}
	return SlugResult{Valid: true}
}

// SlugRuleFor names the rule that ValidateSlug would apply.
func SlugRuleFor(kind, slug string) string {
	for _, rule := range slugRules {
		if rule.applies(kind, slug) {
			return rule.name
		}
	}
	return ""
}

func afterFirstSlashIsSlug(_, slug string) []string {
	rest := ""
	if i := strings.Index(slug, "/"); i >= 0 {
		rest = slug[i+1:]
	}
	if !basicSlug.MatchString(rest) {
		return []string{reasonUsableInURL}
	}
	return nil
}

func allSegments(slug string, grammar *regexp.Regexp) bool {
	for _, seg := range strings.Split(slug, "/") {
		if !grammar.MatchString(seg) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
