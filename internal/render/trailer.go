package render

import (
	"strconv"
	"strings"

	"ici-report/internal/domain"
)

const (
	trailerRoom     = 60.0
	findingsTitle   = 10.0
	findingsRow     = 16.0
	findingsIDWidth = 60.0
	findingsGap     = 8.0
	summaryHeight   = 50.0
	summaryGap      = 10.0
	signatureHeight = 70.0
	signatureGutter = 15.0
)

// drawFindings lists every entry that carries observations. Nothing is drawn
// when no entry does.
func (s *Session) drawFindings() {
	var rows []domain.ReportEntry
	for _, e := range s.in.Report.Entries {
		if e.HasObservations() {
			rows = append(rows, e)
		}
	}
	if len(rows) == 0 {
		return
	}

	c := s.c
	s.ensureRoom(trailerRoom)
	c.FillRect(pageMargin, s.y, contentWidth, findingsTitle, colorGrey800)
	c.StrokeRect(pageMargin, s.y, contentWidth, findingsTitle, colorBlack)
	c.Text("HALLAZGOS GENERALES", pageMargin+5, s.y+2, bold(7), colorWhite, TextBox{})
	s.y += findingsTitle

	for _, e := range rows {
		s.ensureRoom(findingsRow)
		c.StrokeRect(pageMargin, s.y, findingsIDWidth, findingsRow, colorGrey300)
		c.Text(e.CustomID, pageMargin+2, s.y+5, bold(6), colorBlack, TextBox{Width: findingsIDWidth - 4, Ellipsis: true})
		c.StrokeRect(pageMargin+findingsIDWidth, s.y, contentWidth-findingsIDWidth, findingsRow, colorGrey300)
		c.Text(strings.TrimSpace(e.Observations), pageMargin+findingsIDWidth+2, s.y+5, regular(6), colorBlack,
			TextBox{Width: contentWidth - findingsIDWidth - 4, Ellipsis: true})
		s.y += findingsRow
	}
	s.y += findingsGap
}

// drawSummary draws the general observations box and the status tally.
// NR results are counted but have no figure of their own.
func (s *Session) drawSummary() {
	c := s.c
	s.ensureRoom(trailerRoom)

	tally := domain.Tally(s.in.Report.Entries)
	obsW := contentWidth * 0.65
	sumW := contentWidth * 0.3
	sumX := pageMargin + obsW + contentWidth*0.05
	y := s.y

	c.StrokeRect(pageMargin, y, obsW, summaryHeight, colorGrey400)
	c.Text("Observaciones Generales", pageMargin+4, y+4, bold(6), colorBlack, TextBox{})
	c.Line(pageMargin, y+12, pageMargin+obsW, y+12, colorGrey300)
	general := strings.TrimSpace(s.in.Report.GeneralObservations)
	if general == "" {
		general = "Sin observaciones generales."
	}
	c.Text(general, pageMargin+4, y+15, regular(6), colorBlack,
		TextBox{Width: obsW - 8, Height: summaryHeight - 19, Ellipsis: true})

	c.StrokeRect(sumX, y, sumW, summaryHeight, colorGrey400)
	c.Text("Resumen", sumX, y+4, bold(6), colorBlack, TextBox{Width: sumW, Align: AlignCenter})
	c.Line(sumX, y+12, sumX+sumW, y+12, colorGrey300)

	figures := []struct {
		label string
		value int
		color Color
	}{
		{"OK", tally.OK, colorGreen},
		{"FALLA", tally.NOK, colorRed},
		{"N/A", tally.NA, colorGrey600},
	}
	statW := sumW / float64(len(figures))
	for i, f := range figures {
		fx := sumX + float64(i)*statW
		c.Text(f.label, fx, y+20, bold(5), f.color, TextBox{Width: statW, Align: AlignCenter})
		c.Text(strconv.Itoa(f.value), fx, y+30, bold(9), f.color, TextBox{Width: statW, Align: AlignCenter})
	}

	s.y += summaryHeight + summaryGap
}

// drawSignatures draws the provider and client signature boxes. Missing
// signatures and names leave the space blank.
func (s *Session) drawSignatures() {
	s.ensureRoom(signatureHeight)
	r := s.in.Report
	w := (contentWidth - signatureGutter) / 2

	s.drawSignatureBox(pageMargin, w, "Nombre y Firma del Responsable (Proveedor)", r.ProviderSignature, r.ProviderSignerName)
	s.drawSignatureBox(pageMargin+w+signatureGutter, w, "Nombre y Firma del Responsable (Cliente)", r.ClientSignature, r.ClientSignerName)

	s.y += signatureHeight
}

func (s *Session) drawSignatureBox(x, w float64, title, signature, signer string) {
	c, y := s.c, s.y
	c.StrokeRect(x, y, w, signatureHeight, colorBlack)
	c.Text(title, x+4, y+2, bold(5), colorBlack, TextBox{})
	if signature != "" {
		c.Image(signature, x+w/2-30, y+15, 60, 30)
	}
	c.Line(x+20, y+55, x+w-20, y+55, colorGrey400)
	c.Text(signer, x+20, y+58, bold(6), colorBlack, TextBox{Width: w - 40, Align: AlignCenter, Ellipsis: true})
}
