package render

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// errorStyle keeps the panel readable without any page stylesheet.
const errorStyle = "border:2px solid #d32f2f;border-radius:4px;padding:1rem;margin:1rem 0;" +
	"background:#fff5f5;color:#b71c1c;font-family:sans-serif"

// ErrorFragment returns a self-contained, red-bordered error panel.
// All text is HTML-escaped.
func ErrorFragment(heading, message, detail string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="marp-error" role="alert" style="` + errorStyle + `">`)
	sb.WriteString("<h1>" + html.EscapeString(heading) + "</h1>")
	if message != "" {
		sb.WriteString("<p>" + html.EscapeString(message) + "</p>")
	}
	if detail != "" {
		sb.WriteString(`<pre style="white-space:pre-wrap">` + html.EscapeString(detail) + "</pre>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

// CountSlides counts top-level <section> elements in rendered HTML.
// Nested sections belong to their slide. The result is at least 1.
func CountSlides(htmlContent string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return 1
	}

	n := doc.Find("section").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.ParentsFiltered("section").Length() == 0
	}).Length()

	if n < 1 {
		return 1
	}
	return n
}

// InjectHead inserts snippet before </head>, or prepends it when the document
// has no head. A snippet already present is not inserted twice.
func InjectHead(htmlContent, snippet string) string {
	if snippet == "" || strings.Contains(htmlContent, snippet) {
		return htmlContent
	}

	lower := strings.ToLower(htmlContent)
	if idx := strings.Index(lower, "</head>"); idx != -1 {
		return htmlContent[:idx] + snippet + htmlContent[idx:]
	}
	return snippet + htmlContent
}
