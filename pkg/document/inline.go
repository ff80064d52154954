// Package document handles the text side of uploaded and generated
// documents: turning an uploaded resume into prompt-ready text and
// deriving a download name from generated HTML.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// Inline reads the resume stored at path and returns its text for
// prompt inclusion. HTML uploads are converted to Markdown so the
// prompt carries content rather than markup; Markdown and plain text
// pass through unchanged.
func Inline(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read resume: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".html", ".htm":
		md, err := htmltomarkdown.ConvertString(string(b))
		if err != nil {
			return "", fmt.Errorf("convert resume html: %w", err)
		}
		return md, nil
	case ".md", ".txt", "":
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported resume format %q", ext)
	}
}

// PDFFileName derives a download filename from the document's <title>,
// falling back to "resume.pdf" when there is none.
func PDFFileName(html string) string {
	title := ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	slug := slugify(title)
	if slug == "" {
		slug = "resume"
	}
	return slug + ".pdf"
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
