package pipeline

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("```(?:html)?\\s*\\n?")
	emojiRe     = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2300}-\x{23FF}\x{200D}\x{FE0F}]+`)
	htmlTagRe   = regexp.MustCompile(`<[a-zA-Z]`)
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingRe   = regexp.MustCompile(`(?m)^#{1,4}\s+(.+)$`)
)

// CleanMarkup normalises model output to the HTML subset the report uses:
// code fences and emoji are stripped, and plain markdown is converted line
// by line when the text carries no HTML at all.
func CleanMarkup(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = emojiRe.ReplaceAllString(text, "")

	if !htmlTagRe.MatchString(text) {
		var out []string
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case strings.HasPrefix(line, "# "):
				out = append(out, "<h2>"+line[2:]+"</h2>")
			case strings.HasPrefix(line, "## "):
				out = append(out, "<h3>"+line[3:]+"</h3>")
			case strings.HasPrefix(line, "### "):
				out = append(out, "<h4>"+line[4:]+"</h4>")
			case len(line) > 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**"):
				out = append(out, "<h4>"+line[2:len(line)-2]+"</h4>")
			case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
				out = append(out, "<li>"+line[2:]+"</li>")
			default:
				out = append(out, "<p>"+line+"</p>")
			}
		}
		text = strings.Join(out, "\n")
	}

	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = headingRe.ReplaceAllString(text, "<h4>$1</h4>")
	return strings.TrimSpace(text)
}
