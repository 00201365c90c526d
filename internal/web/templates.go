package web

import "html/template"

const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
{{- if eq .State "loading"}}
<meta http-equiv="refresh" content="1">
{{- end}}
<title>User Management Dashboard</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; margin-top: 1rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; }
mark { background: #ffe066; }
.error-box { color: #b00020; }
</style>
</head>
<body>
{{- if eq .State "loading"}}
<p class="loading">Loading users...</p>
{{- else if eq .State "error"}}
<div class="error-box">
  <p>Error: {{.Message}}</p>
  <form method="post" action="/retry">
    <input type="hidden" name="q" value="{{.Search}}">
    <input type="hidden" name="sort" value="{{.Sort}}">
    <button type="submit" class="retry-btn">Retry</button>
  </form>
</div>
{{- else}}
<div class="app-container">
  <h1>User Management Dashboard</h1>
  <p>Total Users: <strong>{{.Total}}</strong></p>
  <form method="get" action="/">
    <input type="text" name="q" value="{{.Search}}" placeholder="Search by name, username, or email..." class="search-box">
    <select name="sort" class="sort-select">
      {{- range .SortOptions}}
      <option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
      {{- end}}
    </select>
    <button type="submit">Apply</button>
  </form>
  <table class="user-table">
    <thead>
      <tr><th>ID</th><th>Name</th><th>Username</th><th>Email</th><th>Phone</th><th>Website</th></tr>
    </thead>
    <tbody>
    {{- range .Rows}}
      <tr>
        <td>{{.User.ID}}</td>
        <td>{{template "segments" .Name}}</td>
        <td>{{.User.Username}}</td>
        <td>{{template "segments" .Email}}</td>
        <td>{{.User.Phone}}</td>
        <td><a href="{{.Link}}" target="_blank" rel="noreferrer">{{.User.Website}}</a></td>
      </tr>
    {{- else}}
      <tr><td colspan="6">No users found</td></tr>
    {{- end}}
    </tbody>
  </table>
</div>
{{- end}}
</body>
</html>
{{define "segments"}}{{range .}}{{if .Match}}<mark>{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}{{end}}`

func parseTemplates() *template.Template {
	return template.Must(template.New("index.html").Parse(indexTemplate))
}
