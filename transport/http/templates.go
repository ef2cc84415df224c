package http

import (
	"html/template"

	"github.com/mishannn/tinkoff"
	"github.com/mishannn/tinkoff/core"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "header"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Tinkoff login</title></head>
<body>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{end}}

{{define "footer"}}</body>
</html>
{{end}}

{{define "login.html"}}{{template "header" .}}
<form method="post" action="/login">
  <label>Login <input type="text" name="username" value="{{.Username}}"></label>
  <label>Password <input type="password" name="password"></label>
  <button type="submit">Sign in</button>
</form>
{{template "footer" .}}{{end}}

{{define "confirm.html"}}{{template "header" .}}
<p>Enter the code sent by SMS.</p>
<form method="post" action="/confirm">
  <input type="hidden" name="token" value="{{.Token}}">
  <label>Code <input type="text" name="code" autocomplete="one-time-code"></label>
  <button type="submit">Confirm</button>
</form>
{{template "footer" .}}{{end}}

{{define "session.html"}}{{template "header" .}}
<dl>
  <dt>wuid</dt><dd>{{.Session.WebUserID}}</dd>
  <dt>sessionid</dt><dd>{{.Session.SessionID}}</dd>
  <dt>access level</dt><dd>{{.Session.AccessLevel}}</dd>
</dl>
{{if .Accounts}}<table>
  <tr><th>Account</th><th>Type</th><th>Balance</th></tr>
  {{range .Accounts}}<tr><td>{{.Name}}</td><td>{{.AccountType}}</td><td>{{.MoneyAmount}}</td></tr>
  {{end}}
</table>{{end}}
{{template "footer" .}}{{end}}
`))

type pageData struct {
	Error    string
	Username string
	Token    string
	Session  *core.Session
	Accounts []tinkoff.Account
}
