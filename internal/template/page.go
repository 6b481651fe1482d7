package template

import (
	"fmt"
	"html"
	htmltemplate "html/template"
	"io"
	"strings"

	"github.com/Makepad-fr/tada/internal/controller"
	"github.com/Makepad-fr/tada/internal/model"
)

// Page is everything the HTML page shows.
type Page struct {
	Items              []model.Item
	EditingID          int64
	Route              model.Route
	ItemsLeft          int
	AllCompleted       bool
	ShowMain           bool
	ShowClearCompleted bool
	SQLInput           string
	Traces             []controller.Trace // oldest first
}

type filterLink struct {
	Href, Label string
	Selected    bool
}

type pageData struct {
	Page
	List     htmltemplate.HTML
	Counter  htmltemplate.HTML
	Filters  []filterLink
	TraceLog htmltemplate.HTML
	Back     string
}

var pageTmpl = htmltemplate.Must(htmltemplate.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tada • TodoMVC</title>
<style>
body{font:14px "Helvetica Neue",Helvetica,Arial,sans-serif;background:#f5f5f5;color:#111;max-width:550px;margin:0 auto}
.todo-list{list-style:none;padding:0}.todo-list li{display:flex;gap:.5em;padding:.4em;border-bottom:1px solid #ededed;background:#fff}
.todo-list li .view{display:flex;gap:.5em;align-items:center;width:100%}.todo-list li label{flex:1}
.todo-list li.completed label{color:#949494;text-decoration:line-through}.todo-list form{display:inline;margin:0}
.destroy:after{content:"×"}.filters{list-style:none;display:flex;gap:1em;padding:0}.filters .selected{font-weight:bold}
.sql-console{margin-top:2em;background:#222;color:#eee;padding:.5em}.sql-console input{width:100%;font-family:monospace}
.sql-trace{font-family:monospace;font-size:12px;max-height:20em;overflow:auto}.sql-error{color:#f66}.sql-empty{color:#999}
.sql-trace table{border-collapse:collapse}.sql-trace td,.sql-trace th{border:1px solid #555;padding:0 .4em}
</style>
</head>
<body>
<section class="todoapp">
	<header class="header">
		<h1>todos</h1>
		<form method="post" action="/todos"><input type="hidden" name="back" value="{{.Back}}"><input class="new-todo" name="title" placeholder="What needs to be done?" autofocus autocomplete="off"></form>
	</header>
	{{if .ShowMain}}
	<section class="main">
		<form method="post" action="/todos/toggle-all"><input type="hidden" name="completed" value="{{not .AllCompleted}}"><input id="toggle-all" class="toggle-all" type="checkbox" onchange="this.form.submit()"{{if .AllCompleted}} checked{{end}}><label for="toggle-all">Mark all as complete</label></form>
		<ul class="todo-list">{{.List}}
		</ul>
	</section>
	<footer class="footer">
		<span class="todo-count">{{.Counter}}</span>
		<ul class="filters">{{range .Filters}}
			<li><a href="{{.Href}}"{{if .Selected}} class="selected"{{end}}>{{.Label}}</a></li>{{end}}
		</ul>
		{{if .ShowClearCompleted}}<form method="post" action="/todos/clear-completed"><button class="clear-completed">Clear completed</button></form>{{end}}
	</footer>
	{{end}}
</section>
<section class="sql-console">
	<form method="post" action="/sql"><input type="hidden" name="back" value="{{.Back}}"><input class="sql-input" name="sql" value="{{.SQLInput}}" placeholder="SELECT * FROM todos" autocomplete="off"></form>
	<div class="sql-trace">{{.TraceLog}}</div>
</section>
<script>
(function(){
	var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/events");
	ws.onmessage = function(){ location.reload(); };
})();
</script>
</body>
</html>
`))

// RenderPage writes the full page.
func RenderPage(w io.Writer, p Page) error {
	d := pageData{
		Page:     p,
		List:     htmltemplate.HTML(ItemList(p.Items, p.EditingID)),
		Counter:  htmltemplate.HTML(CounterHTML(p.ItemsLeft)),
		TraceLog: htmltemplate.HTML(TraceLog(p.Traces)),
		Back:     p.Route.Path(),
	}
	for _, r := range model.Routes {
		d.Filters = append(d.Filters, filterLink{Href: r.Path(), Label: r.Label(), Selected: r == p.Route})
	}
	return pageTmpl.Execute(w, d)
}

// CounterHTML is ItemCounter with the number emphasized.
func CounterHTML(active int) string {
	s := ItemCounter(active)
	n := fmt.Sprint(active)
	return "<strong>" + n + "</strong>" + strings.TrimPrefix(s, n)
}

// TraceLog renders the console trace newest first, so the latest entry
// sits at the top.
func TraceLog(traces []controller.Trace) string {
	var b strings.Builder
	for i := len(traces) - 1; i >= 0; i-- {
		b.WriteString(TraceHTML(traces[i]))
	}
	return b.String()
}

// TraceHTML renders one trace entry: a statement, an error or a table.
func TraceHTML(t controller.Trace) string {
	switch {
	case t.Err != nil:
		return `<div class="sql-error">` + html.EscapeString(t.Err.Error()) + "</div>"
	case t.Result != nil:
		if t.Result.Empty() {
			return `<div class="sql-empty">empty result set</div>`
		}
		var b strings.Builder
		b.WriteString("<table><thead><tr>")
		for _, c := range t.Result.Columns {
			b.WriteString("<th>" + html.EscapeString(c) + "</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, row := range t.Result.Rows {
			b.WriteString("<tr>")
			for _, v := range row {
				b.WriteString("<td>" + html.EscapeString(FormatValue(v)) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
		return b.String()
	case t.Statement != "":
		return "<div>" + html.EscapeString(t.Statement) + "</div>"
	}
	return ""
}

// FormatValue prints a console cell the way the sqlite3 shell would.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
