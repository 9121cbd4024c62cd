package report

import (
	"bytes"
	"html/template"
	"io"
	"time"

	"github.com/raysh454/spectra/internal/model"
)

var reportTmpl = template.Must(template.New("report").Parse(`<html>
    <head>
        <title>Scan Report - {{.ID}}</title>
        <style>
            body { font-family: sans-serif; }
            h1 { color: #333; }
            table { width: 100%; border-collapse: collapse; }
            th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
            th { background-color: #f2f2f2; }
        </style>
    </head>
    <body>
        <h1>Scan Report: {{.ID}}</h1>
        <p>Date: {{.Date}}</p>
        <h2>Defects Found: {{len .Defects}}</h2>
        <table>
            <tr>
                <th>ID</th>
                <th>Type</th>
                <th>Position (X, Y)</th>
                <th>Size (W, H)</th>
                <th>Confidence</th>
                <th>Severity</th>
            </tr>
            {{- range .Defects}}
            <tr><td>{{.ID}}</td><td>{{.Type}}</td><td>({{.X}}, {{.Y}})</td><td>({{.Width}}, {{.Height}})</td><td>{{printf "%.2f" .Confidence}}</td><td>{{.Severity}}</td></tr>
            {{- end}}
        </table>
    </body>
</html>
`))

type htmlView struct {
	ID      model.ScanID
	Date    string
	Defects []model.Defect
}

// FormatDate renders a Unix timestamp the way C's ctime does, in loc.
func FormatDate(ts int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc).Format(time.ANSIC)
}

// WriteHTML writes the self-contained HTML report of rec to w, with dates in
// loc (local time when nil).
func WriteHTML(w io.Writer, rec *model.ScanRecord, loc *time.Location) error {
	return reportTmpl.Execute(w, htmlView{
		ID:      rec.ID,
		Date:    FormatDate(rec.ScanDate, loc),
		Defects: rec.Results,
	})
}

// RenderHTML returns the HTML report of rec in local time.
func RenderHTML(rec *model.ScanRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, rec, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
