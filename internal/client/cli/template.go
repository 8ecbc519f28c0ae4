package cli

import (
	"strings"
	"text/template"
)

const statusTemplate = `
=== Sync Status ===

Server:     {{.Server}}
Connected:  {{.Connected}}
Pending:    {{.Pending}}
Last sync:  {{if .LastSync.IsZero}}never{{else}}{{.LastSync.Format "2006-01-02 15:04:05 MST"}}{{end}}
{{- if .LastError}}
Last error: {{.LastError}}
{{- end}}
{{range .Types}}
{{printf "%-8s" .Type}} {{.Total}} record(s), {{.Pending}} pending, {{.Failed}} failed
{{- end}}
`

const todoTemplate = `
=== Todo ===

Title:    {{.Todo.Title}}
ID:       {{.Todo.ID}}
Done:     {{.Todo.Done}}
{{- if .Todo.Priority}}
Priority: {{.Todo.Priority}}
{{- end}}
{{- if .Todo.Tags}}
Tags:     {{join .Todo.Tags ", "}}
{{- end}}
{{template "meta" .}}`

const noteTemplate = `
=== Note ===

Title: {{.Note.Title}}
ID:    {{.Note.ID}}
{{- if .Note.Tags}}
Tags:  {{join .Note.Tags ", "}}
{{- end}}

Content:
---
{{.Note.Body}}
---
{{template "meta" .}}`

const metaTemplate = `
State:    {{.Record.State}}
Updated:  {{.Record.UpdatedAt.Format "2006-01-02 15:04:05 MST"}}
{{- if .Record.SyncError}}
Error:    {{.Record.SyncError}} (attempts: {{.Record.Attempts}})
{{- end}}
`

var templates = template.Must(
	template.New("status").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(statusTemplate),
)

func init() {
	template.Must(templates.New("meta").Parse(metaTemplate))
	template.Must(templates.New("todo").Parse(todoTemplate))
	template.Must(templates.New("note").Parse(noteTemplate))
}
