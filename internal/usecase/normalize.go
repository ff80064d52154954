package usecase

import "strings"

// escapeReplacer resolves the escape artifacts an AI reply channel can
// leave in extracted HTML: the backslash escape family first, then the
// five standard HTML entities. strings.Replacer performs one
// left-to-right scan without overlapping matches, so a double backslash
// is consumed as a unit and `\\n` comes out as a literal backslash
// followed by n, never a newline.
var escapeReplacer = strings.NewReplacer(
	`\n`, "\n",
	`\"`, `"`,
	`\t`, "\t",
	`\r`, "\r",
	`\\`, `\`,
	`\'`, "'",
	"&quot;", `"`,
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&#39;", "'",
)

// NormalizeHTML resolves escape and entity sequences in extracted HTML
// to literal characters. Total: never fails, empty in means empty out.
func NormalizeHTML(html string) string {
	if html == "" {
		return ""
	}
	return escapeReplacer.Replace(html)
}
