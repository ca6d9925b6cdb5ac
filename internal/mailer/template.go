// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// DigestData is the input to the digest template.
type DigestData struct {
	SubjectPrefix string
	Date          string
	Papers        []types.Paper
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"join": strings.Join,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "unknown date"
		}
		return t.UTC().Format("2006-01-02")
	},
	"inc": func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.SubjectPrefix}} {{.Date}}</title>
	<style>
		body { font-family: system-ui, sans-serif; max-width: 800px; margin: 0 auto; padding: 1rem; line-height: 1.5; color: #222; }
		a { color: #0066cc; }
		.paper { border-bottom: 1px solid #eee; padding: 1rem 0; }
		.paper-title { font-size: 1.1rem; font-weight: 600; margin: 0.25rem 0; }
		.paper-meta { font-size: 0.9rem; color: #666; }
		.badge { display: inline-block; background: #e0e0e0; padding: 0.1rem 0.4rem; border-radius: 3px; font-size: 0.8rem; margin-right: 0.25rem; }
		.paper-abstract { margin: 0.75rem 0; }
		.ai-summary { margin: 0.75rem 0; padding: 0.75rem; background: #f5f8ff; border-left: 3px solid #0066cc; white-space: pre-wrap; }
		.empty { color: #666; }
	</style>
</head>
<body>
<h1>{{.SubjectPrefix}} {{.Date}}</h1>
{{if .Papers}}
<p>{{len .Papers}} papers found.</p>
{{range $i, $p := .Papers}}
<div class="paper">
	<div class="paper-title">{{inc $i}}. {{$p.Title}}</div>
	<div class="paper-meta">{{join $p.Authors ", "}}</div>
	<div class="paper-meta">
		{{date $p.Published}} &middot; {{$p.Source}}
		{{range $p.Categories}}<span class="badge">{{.}}</span>{{end}}
	</div>
	{{if $p.PDFURL}}<div class="paper-meta"><a href="{{$p.PDFURL}}">PDF</a></div>{{end}}
	{{if $p.AISummary}}<div class="ai-summary">{{$p.AISummary}}</div>{{end}}
	<div class="paper-abstract">{{$p.Summary}}</div>
</div>
{{end}}
{{else}}
<p class="empty">No new papers matched your criteria today.</p>
{{end}}
</body>
</html>
`))

// Render returns the HTML body of the digest.
func Render(data DigestData) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering digest: %w", err)
	}
	return buf.String(), nil
}

// Subject builds "<prefix> <YYYY-MM-DD> Update: <n> Papers Found".
func Subject(prefix string, date time.Time, n int) string {
	return fmt.Sprintf("%s %s Update: %d Papers Found", prefix, date.Format("2006-01-02"), n)
}
