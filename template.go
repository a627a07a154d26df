package drip

import "regexp"

// RenderFunc substitutes contact fields into a template string. It never
// fails: a template that cannot be rendered comes back verbatim, a send is
// never blocked on a template bug.
type RenderFunc func(template string, fields Fields) string

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Render replaces {{field}} placeholders with values from the contact's field
// map. Placeholders without a matching field are left in place.
func Render(template string, fields Fields) string {
	if template == "" {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]

		if value, ok := fields[key]; ok {
			return value
		}

		return match
	})
}
