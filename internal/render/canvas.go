package render

import (
	"strings"

	"ici-report/internal/assets"
)

// lineHeightFactor is the Helvetica line box height relative to font size.
const lineHeightFactor = 1.15

const ellipsis = "..."

// Align is horizontal text alignment inside a text box.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Font is a Helvetica face and size.
type Font struct {
	Bold bool
	Size float64
}

func regular(size float64) Font { return Font{Size: size} }

func bold(size float64) Font { return Font{Bold: true, Size: size} }

// TextBox bounds a text placement.
//
// Width 0 draws one unbounded line. With a width the text wraps; Height caps
// the number of lines. Ellipsis truncates the last kept line with "..."; with
// Ellipsis and no Height the text is kept to one line.
type TextBox struct {
	Width    float64
	Height   float64
	Align    Align
	Ellipsis bool
}

// Canvas implements the layout primitives on top of a Backend.
type Canvas struct {
	b     Backend
	cache *assets.Cache
}

func newCanvas(b Backend, cache *assets.Cache) *Canvas {
	if cache == nil {
		cache = assets.NewCache()
	}
	return &Canvas{b: b, cache: cache}
}

func (c *Canvas) StrokeRect(x, y, w, h float64, stroke Color) {
	c.b.SetDrawColor(stroke)
	c.b.Rect(x, y, w, h, styleStroke)
}

func (c *Canvas) FillRect(x, y, w, h float64, fill Color) {
	c.b.SetFillColor(fill)
	c.b.Rect(x, y, w, h, styleFill)
}

func (c *Canvas) FillStrokeRect(x, y, w, h float64, fill, stroke Color) {
	c.b.SetFillColor(fill)
	c.b.SetDrawColor(stroke)
	c.b.Rect(x, y, w, h, styleFillStroke)
}

func (c *Canvas) Line(x1, y1, x2, y2 float64, stroke Color) {
	c.b.SetDrawColor(stroke)
	c.b.Line(x1, y1, x2, y2)
}

func (c *Canvas) VLine(x, y, h float64, stroke Color) {
	c.Line(x, y, x, y+h, stroke)
}

func (c *Canvas) Dot(x, y, r float64, fill Color) {
	c.b.SetFillColor(fill)
	c.b.Circle(x, y, r, styleFill)
}

// Image draws the cached image for ref fitted and centred in the box.
// It reports false when the cache has no asset for ref or the backend
// could not place it.
func (c *Canvas) Image(ref string, x, y, w, h float64) bool {
	a, ok := c.cache.Get(ref)
	if !ok {
		return false
	}
	fx, fy, fw, fh := fitBox(a, x, y, w, h)
	return c.b.Image(ref, a, fx, fy, fw, fh)
}

// ClippedImage is Image inside a rounded clipping box.
func (c *Canvas) ClippedImage(ref string, x, y, w, h float64) bool {
	a, ok := c.cache.Get(ref)
	if !ok {
		return false
	}
	c.b.ClipRoundedRect(x, y, w, h, 2)
	fx, fy, fw, fh := fitBox(a, x, y, w, h)
	drawn := c.b.Image(ref, a, fx, fy, fw, fh)
	c.b.ClipEnd()
	return drawn
}

func fitBox(a *assets.Asset, x, y, w, h float64) (float64, float64, float64, float64) {
	if a.Width <= 0 || a.Height <= 0 {
		return x, y, w, h
	}
	scale := min(w/float64(a.Width), h/float64(a.Height))
	fw, fh := float64(a.Width)*scale, float64(a.Height)*scale
	return x + (w-fw)/2, y + (h-fh)/2, fw, fh
}

// Text draws s at x, y (top of the first line) and returns the height used.
func (c *Canvas) Text(s string, x, y float64, f Font, color Color, box TextBox) float64 {
	if s == "" {
		return 0
	}
	c.b.SetFont(f.Bold, f.Size)
	c.b.SetTextColor(color)

	lines := c.layoutLines(s, f, box)
	lh := f.Size * lineHeightFactor
	for i, line := range lines {
		lx := x
		if box.Width > 0 && box.Align != AlignLeft {
			free := box.Width - c.b.StringWidth(line)
			if box.Align == AlignCenter {
				free /= 2
			}
			lx += max(0, free)
		}
		c.b.Text(lx, y+float64(i)*lh, line)
	}
	return float64(len(lines)) * lh
}

// TextHeight measures s wrapped at width in font f.
func (c *Canvas) TextHeight(s string, f Font, width float64) float64 {
	if s == "" {
		return 0
	}
	c.b.SetFont(f.Bold, f.Size)
	return float64(len(c.wrap(s, width))) * f.Size * lineHeightFactor
}

// TextWidth measures one line of s in font f.
func (c *Canvas) TextWidth(s string, f Font) float64 {
	c.b.SetFont(f.Bold, f.Size)
	return c.b.StringWidth(s)
}

func (c *Canvas) layoutLines(s string, f Font, box TextBox) []string {
	if box.Width <= 0 {
		return []string{strings.ReplaceAll(s, "\n", " ")}
	}
	lines := c.wrap(s, box.Width)

	limit := len(lines)
	switch {
	case box.Height > 0:
		limit = max(1, int(box.Height/(f.Size*lineHeightFactor)))
	case box.Ellipsis:
		limit = 1
	}
	if len(lines) <= limit {
		return lines
	}

	lines = lines[:limit]
	if box.Ellipsis {
		lines[limit-1] = c.truncate(lines[limit-1], box.Width)
	}
	return lines
}

// truncate shortens line until line+"..." fits width.
func (c *Canvas) truncate(line string, width float64) string {
	runes := []rune(strings.TrimRight(line, " "))
	for len(runes) > 0 && c.b.StringWidth(string(runes)+ellipsis) > width {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimRight(string(runes), " ") + ellipsis
}

// wrap breaks s into lines no wider than width at space boundaries. Explicit
// newlines are kept, and so are runs of spaces inside a line and the leading
// indentation of a paragraph. Spaces are trimmed where a line is broken.
// Words wider than the box are broken by rune.
func (c *Canvas) wrap(s string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if strings.TrimSpace(para) == "" {
			lines = append(lines, "")
			continue
		}
		line := ""
		for _, token := range strings.SplitAfter(para, " ") {
			if token == "" {
				continue
			}
			candidate := line + token
			if c.fits(candidate, width) {
				line = candidate
				continue
			}
			if strings.TrimSpace(line) != "" {
				lines = append(lines, strings.TrimRight(line, " "))
			}
			line = token
			for len([]rune(strings.TrimRight(line, " "))) > 1 && !c.fits(line, width) {
				head, rest := c.breakWord(line, width)
				lines = append(lines, head)
				line = rest
			}
		}
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return lines
}

func (c *Canvas) fits(line string, width float64) bool {
	return c.b.StringWidth(strings.TrimRight(line, " ")) <= width
}

func (c *Canvas) breakWord(word string, width float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && c.b.StringWidth(string(runes[:n+1])) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
