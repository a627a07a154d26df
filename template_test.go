package drip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	fields := Fields{
		"first_name": "Ana",
		"company":    "Acme",
	}

	testCases := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "Hello there", "Hello there"},
		{"single field", "Hi {{first_name}}", "Hi Ana"},
		{"repeated field", "{{first_name}}, {{first_name}}!", "Ana, Ana!"},
		{"multiple fields", "Hi {{first_name}} from {{company}}", "Hi Ana from Acme"},
		{"whitespace inside braces", "Hi {{ first_name }}", "Hi Ana"},
		{"unknown field stays verbatim", "Hi {{last_name}}", "Hi {{last_name}}"},
		{"unclosed braces stay verbatim", "Hi {{first_name", "Hi {{first_name"},
		{"empty template", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Render(tc.template, fields))
		})
	}
}

func TestRenderWithoutFields(t *testing.T) {
	assert.Equal(t, "Hi {{first_name}}", Render("Hi {{first_name}}", nil))
	assert.Equal(t, "Hi {{first_name}}", Render("Hi {{first_name}}", Fields{}))
}
