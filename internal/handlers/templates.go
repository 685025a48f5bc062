package handlers

import (
	"html/template"

	"gitlab.com/golang-commonmark/markdown"
)

// Raw HTML in article bodies is escaped, not passed through.
var markdownParser = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true), markdown.MaxNesting(10))

func renderMarkdown(text string) template.HTML {
	return template.HTML(markdownParser.RenderToString([]byte(text)))
}

func tmpl(text string) *template.Template {
	t := template.Must(layoutTmpl.Clone())
	t = template.Must(t.Parse(`{{ define "content" }}` + text + `{{ end }}`))
	return t
}

var layoutTmpl = template.Must(template.New("layout").Option("missingkey=zero").Funcs(template.FuncMap{
	"Markdown": renderMarkdown,
}).Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{ .Theme }}">
	<head>
		<meta charset="utf-8">
		<meta name="viewport" content="width=device-width, initial-scale=1">
		<title>{{ .Title }} | ArticleHub</title>
		<style>
			body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 0 auto; padding: 0 1rem 2rem; }
			[data-theme="dark"] body { background: #1e1f22; color: #e6e6e6; }
			[data-theme="dark"] a { color: #8ab4f8; }
			nav { display: flex; gap: 1rem; align-items: center; padding: 1rem 0; border-bottom: 1px solid #ccc; }
			nav .spacer { flex: 1; }
			.alert { padding: .5rem .75rem; border-radius: .25rem; margin: 1rem 0; }
			.alert-danger { background: #f8d7da; color: #721c24; }
			.alert-info { background: #d1ecf1; color: #0c5460; }
			.muted { color: #888; font-size: .9rem; }
			.tag { display: inline-block; padding: 0 .4rem; margin-right: .25rem; border: 1px solid #aaa; border-radius: .2rem; font-size: .8rem; }
			table { border-collapse: collapse; width: 100%; }
			td, th { text-align: left; padding: .3rem .5rem; border-bottom: 1px solid #ddd; }
			form.stacked label { display: block; margin-top: .6rem; }
		</style>
	</head>
	<body>
		<nav>
			<a href="/">Home</a>
			<a href="/articles">Articles</a>
			<a href="/users">Users</a>
			<span class="spacer"></span>
			<form method="post" action="/set-theme">
				{{ if eq .Theme "dark" }}
					<button name="theme" value="light">Light theme</button>
				{{ else }}
					<button name="theme" value="dark">Dark theme</button>
				{{ end }}
			</form>
			{{ with .User }}
				<span>{{ .Name }}</span>
				<a href="/logout">Log out</a>
			{{ else }}
				<a href="/login">Log in</a>
				<a href="/register">Register</a>
			{{ end }}
		</nav>
		<main>
			{{ template "content" . }}
		</main>
	</body>
</html>`))

var indexTmpl = tmpl(`
	<h1>Welcome{{ with .User }}, {{ .Name }}{{ end }}</h1>
	<p>Browse the <a href="/articles">articles</a>{{ if .User }} or the <a href="/users">user directory</a>{{ end }}.</p>
`)

var loginTmpl = tmpl(`
	<h1>Log in</h1>
	{{ with .Message }}<div class="alert alert-info">{{ . }}</div>{{ end }}
	{{ with .Error }}<div class="alert alert-danger">{{ . }}</div>{{ end }}
	<form class="stacked" method="post" action="/login">
		<input type="hidden" name="redirect" value="{{ .Redirect }}">
		<label>Email <input type="email" name="email" value="{{ .Form.email }}" required autofocus></label>
		<label>Password <input type="password" name="password" required></label>
		<p><button type="submit">Log in</button></p>
	</form>
	<p class="muted">No account yet? <a href="/register">Register</a></p>
`)

var registerTmpl = tmpl(`
	<h1>Register</h1>
	{{ with .Error }}<div class="alert alert-danger">{{ . }}</div>{{ end }}
	<form class="stacked" method="post" action="/register">
		<label>Name <input name="name" value="{{ .Form.name }}" required></label>
		<label>Email <input type="email" name="email" value="{{ .Form.email }}" required></label>
		<label>Password <input type="password" name="password" minlength="6" required></label>
		<label>Age <input type="number" name="age" min="1" max="120" value="{{ .Form.age }}" required></label>
		<p><button type="submit">Create account</button></p>
	</form>
`)

var usersTmpl = tmpl(`
	<h1>Users</h1>
	<p class="muted">{{ len .Users }} of {{ .Total }}</p>
	<table>
		<tr><th>Name</th><th>Email</th><th>Role</th><th>Age group</th></tr>
		{{ range .Users }}
			<tr>
				<td><a href="/users/{{ .ID }}">{{ .Name }}</a></td>
				<td>{{ .Email }}</td>
				<td>{{ .Role }}</td>
				<td>{{ .AgeGroup }}</td>
			</tr>
		{{ end }}
	</table>
`)

var userTmpl = tmpl(`
	{{ with .Subject }}
		<h1>{{ .Name }}</h1>
		<p>{{ .FullInfo }}</p>
		<table>
			<tr><th>Age</th><td>{{ .Age }} ({{ .AgeGroup }})</td></tr>
			<tr><th>Member since</th><td>{{ .CreatedAt.Format "January 2, 2006" }}</td></tr>
		</table>
	{{ end }}
	<p><a href="/users">Back to users</a></p>
`)

var articlesTmpl = tmpl(`
	<h1>Articles</h1>
	<p class="muted">{{ len .Articles }} of {{ .Total }}</p>
	{{ range .Articles }}
		<article>
			<h2><a href="/articles/{{ .ID }}">{{ .Title }}</a>{{ if not .Published }} <span class="tag">draft</span>{{ end }}</h2>
			<p class="muted">{{ .Author }} &middot; {{ .FormattedDate }} &middot; {{ .ReadingTime }} &middot; {{ .Category }}</p>
			<p>{{ .Summary }}</p>
		</article>
	{{ else }}
		<p>No articles yet.</p>
	{{ end }}
`)

var articleTmpl = tmpl(`
	{{ with .Article }}
		<article>
			<h1>{{ .Title }}</h1>
			<p class="muted">{{ .Author }} &middot; {{ .FormattedDate }} &middot; {{ .ReadingTime }} &middot; {{ .Views }} views</p>
			<p>{{ range .Tags }}<span class="tag">{{ . }}</span>{{ end }}</p>
			{{ Markdown .Content }}
		</article>
	{{ end }}
	<p><a href="/articles">Back to articles</a></p>
`)

var errorTmpl = tmpl(`
	<h1>{{ .Title }}</h1>
	<p>{{ .Message }}</p>
	<p><a href="/">Home</a></p>
`)
