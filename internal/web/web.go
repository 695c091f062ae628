// Package web embeds the two static pages served by the dashboard.
package web

import (
	_ "embed"
	"net/http"
)

//go:embed login.html
var loginPage []byte

//go:embed dashboard.html
var dashboardPage []byte

func ServeLogin(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(loginPage)
}

func ServeDashboard(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(dashboardPage)
}
