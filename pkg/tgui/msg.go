package tgui

import (
	"strings"

	"boardbot/internal/transport"
)

// Builder assembles an HTML message line by line.
// Default send options: ParseMode=HTML, previews disabled.
type Builder struct {
	lines   []string
	choices []transport.Choice
}

func New() *Builder { return &Builder{} }

// Title adds a bold title line. Emoji is optional.
func (b *Builder) Title(emoji, title string) *Builder {
	t := strings.TrimSpace(title)
	if t == "" {
		return b
	}
	if e := strings.TrimSpace(emoji); e != "" {
		b.lines = append(b.lines, e+" "+B(t))
		return b
	}
	b.lines = append(b.lines, B(t))
	return b
}

// Line adds a single escaped line. An empty string adds a blank separator.
func (b *Builder) Line(s string) *Builder {
	if strings.TrimSpace(s) == "" {
		b.lines = append(b.lines, "")
		return b
	}
	b.lines = append(b.lines, Esc(s))
	return b
}

// Raw adds a line without escaping; the caller guarantees valid HTML.
func (b *Builder) Raw(s string) *Builder {
	b.lines = append(b.lines, s)
	return b
}

// KV adds a "Key: value" line with the key bolded.
func (b *Builder) KV(key, value string) *Builder {
	v := strings.TrimSpace(value)
	if v == "" {
		return b
	}
	b.lines = append(b.lines, B(key)+": "+Esc(v))
	return b
}

// Link adds a "Key: <a href>" line.
func (b *Builder) Link(key, href, label string) *Builder {
	if strings.TrimSpace(href) == "" {
		return b
	}
	b.lines = append(b.lines, B(key)+": "+A(href, label))
	return b
}

// Choice appends an inline button.
func (b *Builder) Choice(label, data string) *Builder {
	b.choices = append(b.choices, transport.Choice{Label: label, Data: data})
	return b
}

func (b *Builder) Text() string { return strings.Join(b.lines, "\n") }

func (b *Builder) Options() *transport.SendOptions {
	return &transport.SendOptions{
		ParseMode:      "HTML",
		DisablePreview: true,
		Choices:        append([]transport.Choice(nil), b.choices...),
	}
}
