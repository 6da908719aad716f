package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"mean": Mean,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th { background: #eee; }
td:first-child { text-align: left; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
<img src="{{.ChartURI}}" alt="Daily averages" style="width:100%; max-width:700px;">
<h3>Daily averages</h3>
<table class="daily">
<tr><th>Date</th><th>Readings</th><th>Systolic</th><th>Diastolic</th><th>Pulse</th></tr>
{{- range .Daily}}
<tr><td>{{.Label}}</td><td>{{.Count}}</td><td>{{mean .Systolic}}</td><td>{{mean .Diastolic}}</td><td>{{mean .Pulse}}</td></tr>
{{- end}}
</table>
<h3>Readings</h3>
<table class="readings">
<tr><th>Timestamp</th><th>Systolic</th><th>Diastolic</th><th>Pulse</th></tr>
{{- range .Rows}}
<tr class="reading"><td>{{.Timestamp}}</td><td>{{.Systolic}}</td><td>{{.Diastolic}}</td><td>{{.Pulse}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

// HTML renders doc as a standalone page with the chart inlined.
func HTML(doc *Document) ([]byte, error) {
	data := struct {
		*Document
		ChartURI template.URL
	}{
		Document: doc,
		ChartURI: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(doc.Chart)),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render HTML: %w", err)
	}
	return buf.Bytes(), nil
}
