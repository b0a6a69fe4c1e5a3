// Package tgui holds small helpers for building Telegram-flavored HTML
// messages, inline keyboards and callback data payloads.
package tgui

import "strings"

// Esc escapes the three characters Telegram HTML parse mode cares about.
func Esc(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// B wraps s in bold tags, escaping first.
func B(s string) string { return "<b>" + Esc(s) + "</b>" }

// A renders an HTML link. The href is emitted as-is.
func A(href, label string) string {
	return `<a href="` + href + `">` + Esc(label) + `</a>`
}
