package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips fences and emoji",
			in:   "```html\n<p>Conversion is up \U0001F680</p>\n```",
			want: "<p>Conversion is up </p>",
		},
		{
			name: "converts markdown when no html present",
			in:   "# Funnel\n\n**Key Findings**\n- search drop is **high**\nplain line",
			want: "<h2>Funnel</h2>\n<h4>Key Findings</h4>\n<li>search drop is <strong>high</strong></li>\n<p>plain line</p>",
		},
		{
			name: "keeps html and fixes stray bold",
			in:   "<h4>Summary</h4>\n<p>**42%** converted</p>",
			want: "<h4>Summary</h4>\n<p><strong>42%</strong> converted</p>",
		},
		{
			name: "empty",
			in:   "  \n ",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMarkup(tt.in))
		})
	}
}
