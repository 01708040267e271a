package validators

import (
	"fmt"
	"sort"
	"strings"

	"edition-publisher/govspeak"
	"edition-publisher/models"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContentValidator decides whether a string value is safe to store in a field.
// richText selects the govspeak grammar instead of plain HTML.
type ContentValidator interface {
	Validate(field, value string, richText bool) (bool, string)
}

const (
	reasonInvalidGovspeak = "cannot include invalid Govspeak or JavaScript"
	reasonInvalidHTML     = "cannot include invalid HTML or JavaScript"
)

var forbiddenElements = map[atom.Atom]bool{
	atom.Script: true, atom.Iframe: true, atom.Object: true, atom.Embed: true,
	atom.Applet: true, atom.Form: true, atom.Input: true, atom.Button: true,
	atom.Style: true, atom.Link: true, atom.Meta: true, atom.Base: true,
	atom.Frame: true, atom.Frameset: true,
}

var urlAttributes = map[string]bool{
	"href": true, "src": true, "action": true, "formaction": true, "background": true, "poster": true,
}

// SafeHTML rejects markup that could carry script into rendered pages.
type SafeHTML struct{}

func (SafeHTML) Validate(field, value string, richText bool) (bool, string) {
	if richText {
		if !SafeFragment(value) || !SafeFragment(govspeak.ToHTML(value)) {
			return false, reasonInvalidGovspeak
		}
		return true, ""
	}
	if !SafeFragment(value) {
		return false, reasonInvalidHTML
	}
	return true, ""
}

// SafeFragment reports whether an HTML fragment is free of script-capable elements,
// event handler attributes and script URLs.
func SafeFragment(fragment string) bool {
	if !strings.ContainsAny(fragment, "<&") {
		return true
	}

	tokenizer := html.NewTokenizerFragment(strings.NewReader(fragment), "body")
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return true
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		token := tokenizer.Token()
		if forbiddenElements[token.DataAtom] {
			return false
		}
		for _, attr := range token.Attr {
			key := strings.ToLower(attr.Key)
			if strings.HasPrefix(key, "on") {
				return false
			}
			if urlAttributes[key] && scriptURL(attr.Val) {
				return false
			}
			if key == "style" {
				v := strings.ToLower(attr.Val)
				if strings.Contains(v, "expression(") || strings.Contains(v, "javascript:") {
					return false
				}
			}
		}
	}
}

func scriptURL(v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") || strings.HasPrefix(v, "data:text/html")
}

// CheckValue routes value through v, descending into maps and slices. Every string found
// is checked under the name of the top-level field and reasons are added to errs.
func CheckValue(v ContentValidator, field string, value interface{}, richText bool, errs *models.ErrorValidation) {
	switch val := value.(type) {
	case nil:
	case string:
		if ok, reason := v.Validate(field, val, richText); !ok {
			addOnce(errs, field, reason)
		}
	case []string:
		for _, s := range val {
			CheckValue(v, field, s, richText, errs)
		}
	case []interface{}:
		for _, entry := range val {
			CheckValue(v, field, entry, richText, errs)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			CheckValue(v, field, val[k], richText, errs)
		}
	case bool, int, int64, float64:
	default:
		CheckValue(v, field, fmt.Sprint(val), richText, errs)
	}
}

func addOnce(errs *models.ErrorValidation, field, reason string) {
	for _, r := range errs.Fields[field] {
		if r == reason {
			return
		}
	}
	errs.Add(field, reason)
}
