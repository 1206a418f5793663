package report

import (
	"html/template"
	"io"
	"strings"

	"github.com/biomed-dq-validator/internal/domain"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"pct":   percentOf,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Data Quality Report{{with .Report.Metadata.DatasetName}} - {{.}}{{end}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; margin: 2rem; color: #222; }
h1 { margin-bottom: 0.2rem; }
.meta { color: #666; font-size: 0.9rem; }
.score { font-size: 2.4rem; font-weight: bold; }
.grade-a, .grade-b { color: #1a7f37; }
.grade-c, .grade-d { color: #9a6700; }
.grade-f { color: #cf222e; }
table { border-collapse: collapse; margin: 1rem 0; min-width: 40rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.7rem; text-align: left; }
th { background: #f6f8fa; }
.status-pass { color: #1a7f37; font-weight: bold; }
.status-fail, .status-error { color: #cf222e; font-weight: bold; }
.status-skip { color: #666; }
.bar { background: #eee; width: 10rem; height: 0.7rem; }
.bar span { display: block; height: 100%; background: #2da44e; }
.ready { padding: 0.3rem 0.6rem; border-radius: 4px; color: #fff; }
.ready-true { background: #1a7f37; }
.ready-false { background: #cf222e; }
</style>
</head>
<body>
<h1>Data Quality Report</h1>
<p class="meta">
{{with .Report.Metadata.DatasetName}}Dataset <strong>{{.}}</strong> &middot; {{end}}
Report {{.Report.Metadata.ReportID}} &middot; {{.Report.Metadata.GeneratedAt.Format "2006-01-02 15:04:05 MST"}} &middot;
{{.Report.DatasetInfo.Rows}} rows &times; {{.Report.DatasetInfo.Columns}} columns
</p>

<p><span class="score grade-{{lower (printf "%s" .Report.QualityScore.Grade)}}">{{printf "%.2f" .Report.QualityScore.Overall}}</span>
/ {{printf "%.0f" .Report.QualityScore.MaxScore}} &middot; grade {{.Report.QualityScore.Grade}} &middot; {{.Report.Assessment.Status}}
&middot; <span class="ready ready-{{.Report.Assessment.ReadyForML}}">{{if .Report.Assessment.ReadyForML}}Ready for ML{{else}}Not ready for ML{{end}}</span></p>

<h2>Score breakdown</h2>
<table>
<tr><th>Component</th><th>Points</th><th>Weight</th><th></th><th>Note</th></tr>
{{range .Report.QualityScore.Components}}<tr>
<td>{{.Name}}</td><td>{{printf "%.2f" .Points}}</td><td>{{printf "%.0f" .Weight}}</td>
<td><div class="bar"><span style="width: {{printf "%.0f" (pct .Points .Weight)}}%"></span></div></td>
<td>{{.Note}}</td>
</tr>
{{end}}</table>

<h2>Checks</h2>
<table>
<tr><th>Check</th><th>Result</th><th>Detail</th></tr>
{{range .Checks}}<tr><td>{{.Name}}</td><td class="status-{{lower .Status}}">{{.Status}}</td><td>{{.Detail}}</td></tr>
{{end}}</table>

{{with .Report.Assessment.Issues}}<h2>Issues</h2>
<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{with .Report.Assessment.Warnings}}<h2>Warnings</h2>
<ul>{{range .}}<li>{{.}}</li>{{end}}</ul>
{{end}}
{{with .Report.Assessment.Recommendations}}<h2>Recommendations</h2>
<ol>{{range .}}<li>{{.}}</li>{{end}}</ol>
{{end}}
</body>
</html>
`))

func percentOf(points, weight float64) float64 {
	if weight <= 0 {
		return 0
	}
	return 100 * points / weight
}

// WriteHTML renders a self-contained HTML page for dashboards. Every value
// taken from the report is escaped.
func WriteHTML(w io.Writer, r *domain.ValidationReport) error {
	return htmlTemplate.Execute(w, struct {
		Report *domain.ValidationReport
		Checks []CheckRow
	}{r, checkRows(r)})
}
