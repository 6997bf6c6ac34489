package render

import (
	"errors"
	"io"
	"strings"

	"ici-report/internal/assets"
)

// op is one recorded drawing call.
type op struct {
	kind  string // page, rect, line, circle, text, image, clip
	page  int
	x, y  float64
	w, h  float64
	style string
	text  string
	bold  bool
	size  float64
	color Color
}

// recorder is a Backend that records calls instead of drawing. Text width is
// half the font size per rune.
type recorder struct {
	ops   []op
	page  int
	bold  bool
	size  float64
	text  Color
	fill  Color
	draw  Color
	err   error
	clips int
	// rejected refs are refused by Image.
	rejected map[string]bool
}

var _ Backend = (*recorder)(nil)

func (r *recorder) add(o op) {
	o.page = r.page
	r.ops = append(r.ops, o)
}

func (r *recorder) AddPage() {
	r.page++
	r.add(op{kind: "page"})
}

func (r *recorder) PageNo() int { return r.page }

func (r *recorder) SetFont(bold bool, size float64) { r.bold, r.size = bold, size }

func (r *recorder) SetTextColor(c Color) { r.text = c }

func (r *recorder) SetFillColor(c Color) { r.fill = c }

func (r *recorder) SetDrawColor(c Color) { r.draw = c }

func (r *recorder) Rect(x, y, w, h float64, style string) {
	c := r.draw
	if style != styleStroke {
		c = r.fill
	}
	r.add(op{kind: "rect", x: x, y: y, w: w, h: h, style: style, color: c})
}

func (r *recorder) Line(x1, y1, x2, y2 float64) {
	r.add(op{kind: "line", x: x1, y: y1, w: x2 - x1, h: y2 - y1, color: r.draw})
}

func (r *recorder) Circle(x, y, rad float64, style string) {
	r.add(op{kind: "circle", x: x, y: y, w: rad, style: style, color: r.fill})
}

func (r *recorder) Text(x, y float64, s string) {
	r.add(op{kind: "text", x: x, y: y, text: s, bold: r.bold, size: r.size, color: r.text})
}

func (r *recorder) StringWidth(s string) float64 {
	return float64(len([]rune(s))) * r.size * 0.5
}

func (r *recorder) ClipRoundedRect(x, y, w, h, rad float64) {
	r.clips++
	r.add(op{kind: "clip", x: x, y: y, w: w, h: h})
}

func (r *recorder) ClipEnd() { r.clips-- }

func (r *recorder) Image(ref string, a *assets.Asset, x, y, w, h float64) bool {
	if r.rejected[ref] {
		return false
	}
	r.add(op{kind: "image", x: x, y: y, w: w, h: h, text: ref})
	return true
}

func (r *recorder) Error() error { return r.err }

func (r *recorder) Output(w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	return errors.New("recorder has no output")
}

func (r *recorder) texts(match func(op) bool) []op {
	var out []op
	for _, o := range r.ops {
		if o.kind == "text" && (match == nil || match(o)) {
			out = append(out, o)
		}
	}
	return out
}

func (r *recorder) textsEqual(s string) []op {
	return r.texts(func(o op) bool { return o.text == s })
}

func (r *recorder) textsPrefixed(prefix string) []op {
	return r.texts(func(o op) bool { return strings.HasPrefix(o.text, prefix) })
}

func (r *recorder) filter(kind string, match func(op) bool) []op {
	var out []op
	for _, o := range r.ops {
		if o.kind == kind && (match == nil || match(o)) {
			out = append(out, o)
		}
	}
	return out
}

func onPage(ops []op, page int) int {
	n := 0
	for _, o := range ops {
		if o.page == page {
			n++
		}
	}
	return n
}
