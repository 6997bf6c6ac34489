package render

import (
	"io"

	"ici-report/internal/assets"
)

// Color is an RGB triple.
type Color [3]int

var (
	colorBlack   = Color{0, 0, 0}
	colorWhite   = Color{255, 255, 255}
	colorGrey50  = Color{250, 250, 250}
	colorGrey100 = Color{245, 245, 245}
	colorGrey200 = Color{238, 238, 238}
	colorGrey300 = Color{224, 224, 224}
	colorGrey400 = Color{189, 189, 189}
	colorGrey600 = Color{117, 117, 117}
	colorGrey700 = Color{97, 97, 97}
	colorGrey800 = Color{66, 66, 66}
	colorRed     = Color{244, 67, 54}
	colorGreen   = Color{76, 175, 80}
)

// Rect styles.
const (
	styleStroke     = "D"
	styleFill       = "F"
	styleFillStroke = "FD"
)

// Backend is the drawing surface the layout engine writes to. Coordinates
// are points with the origin at the top-left corner of the page. Text is
// placed by the top of its line box, in the Helvetica family.
type Backend interface {
	AddPage()
	PageNo() int

	SetFont(bold bool, size float64)
	SetTextColor(c Color)
	SetFillColor(c Color)
	SetDrawColor(c Color)

	Rect(x, y, w, h float64, style string)
	Line(x1, y1, x2, y2 float64)
	Circle(x, y, r float64, style string)
	Text(x, y float64, s string)
	StringWidth(s string) float64

	ClipRoundedRect(x, y, w, h, r float64)
	ClipEnd()
	// Image places a at exactly x, y, w, h and reports whether it was drawn.
	// ref identifies the image for reuse across placements.
	Image(ref string, a *assets.Asset, x, y, w, h float64) bool

	Error() error
	Output(w io.Writer) error
}
