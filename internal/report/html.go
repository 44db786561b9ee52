// Package report writes the standalone HTML analysis report. Pure
// presentation over the scan result contract.
package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"exhume/pkg/analyzer/unused"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Code Analysis Report</title>
    <link rel="stylesheet" type="text/css" href="https://cdn.datatables.net/1.11.5/css/jquery.dataTables.css">
    <link rel="stylesheet" type="text/css" href="https://cdn.datatables.net/1.11.5/css/dataTables.bootstrap5.min.css">
    <script type="text/javascript" src="https://code.jquery.com/jquery-3.5.1.min.js"></script>
    <script type="text/javascript" src="https://cdn.datatables.net/1.11.5/js/jquery.dataTables.min.js"></script>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .container { max-width: 1200px; margin: 0 auto; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th { background-color: #4CAF50; color: white; }
        tr:nth-child(even) { background-color: #f2f2f2; }
        td, th { padding: 12px; text-align: left; }
        .usage-0 { color: red; font-weight: bold; }
        h1 { color: #333; }
        .false-positive { color: orange; }
        .static-attr { color: purple; }
        .controls { margin: 20px 0; }
        .hidden { display: none; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Code Analysis Report</h1>
        <div class="controls">
            <label>
                <input type="checkbox" id="showFalsePositives"> Show potential false positives
            </label>
        </div>
        <table id="codeTable" class="display">
            <thead>
                <tr>
                    <th>Name</th>
                    <th>Lines</th>
                    <th>Usage Count</th>
                    <th>Status</th>
                </tr>
            </thead>
            <tbody>
{{- range .Rows }}
                <tr><td>{{ .Name }}</td><td>{{ .Lines }}</td><td class="{{ .UsageClass }}">{{ .Usage }}</td><td class="{{ .StatusClass }}">{{ .Status }}</td></tr>
{{- end }}
            </tbody>
        </table>
    </div>
    <script>
        $(document).ready(function() {
            $.fn.dataTable.ext.search.push(
                function(settings, data, dataIndex) {
                    if (!$('#showFalsePositives').is(':checked') && data[3].includes('potential false positive')) {
                        return false;
                    }
                    return true;
                }
            );

            var table = $('#codeTable').DataTable({
                order: [[1, 'desc']],
                pageLength: 50
            });

            $('#showFalsePositives').change(function() {
                table.draw();
            });
        });
    </script>
</body>
</html>
`

var page = template.Must(template.New("report").Parse(pageTemplate))

type row struct {
	Name        string
	Lines       int
	Usage       string
	UsageClass  string
	StatusClass string
	Status      string
}

// Generate writes code_analysis_<language>.html into dir and returns the
// written path. Rows arrive pre-sorted by the pipeline; the page sorts by
// line count client-side as well.
func Generate(results []unused.Result, language, dir string) (string, error) {
	rows := make([]row, len(results))
	for i, r := range results {
		rows[i] = row{
			Name:        r.QualifiedName,
			Lines:       r.DeclaredLines,
			Usage:       fmt.Sprintf("%d", r.UsageCount),
			UsageClass:  usageClass(r.UsageCount),
			StatusClass: statusClass(r.Status),
			Status:      r.Status,
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("code_analysis_%s.html", language))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := page.Execute(f, struct{ Rows []row }{rows}); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return path, nil
}

func usageClass(usage int) string {
	if usage == 0 {
		return "usage-0"
	}
	return ""
}

func statusClass(status string) string {
	switch {
	case strings.Contains(status, "potential false positive"):
		return "false-positive"
	case strings.Contains(status, "static attribute"):
		return "static-attr"
	default:
		return ""
	}
}
