package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ici-report/internal/domain"
)

const (
	headerHeight = 80.0
	headerGap    = 10.0
	logoSize     = 35.0
	infoBand     = 12.0
	refBand      = 10.0
	bandGap      = 8.0
)

var (
	monthNames = [12]string{
		"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
	}
	monthAbbr = [12]string{
		"ene", "feb", "mar", "abr", "may", "jun",
		"jul", "ago", "sept", "oct", "nov", "dic",
	}

	upperES = cases.Upper(language.Spanish)
)

// PeriodLabel names a report period: "2025-W03" -> "Semana 2025-W03",
// "2025-01" -> "Enero 2025". Identifiers that do not parse are returned as is.
func PeriodLabel(id string) string {
	if strings.Contains(id, "W") {
		return "Semana " + id
	}
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return id
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return id
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return id
	}
	return fmt.Sprintf("%s %d", monthNames[month-1], year)
}

// ExecutionDate formats t as "05 ENE 2025".
func ExecutionDate(t time.Time) string {
	return upperES.String(fmt.Sprintf("%02d %s %d", t.Day(), monthAbbr[t.Month()-1], t.Year()))
}

// pageHeader holds the text computed once per document and repeated on
// every page.
type pageHeader struct {
	badge       string
	frequencies string
}

func newPageHeader(in Input) pageHeader {
	return pageHeader{
		badge: fmt.Sprintf("EJECUCIÓN: %s  |  PERIODO: %s",
			ExecutionDate(in.Report.ServiceDate), upperES.String(PeriodLabel(in.Report.DateStr))),
		frequencies: "Frecuencias: " + strings.Join(domain.InvolvedFrequencies(in.Report, in.Devices), ", "),
	}
}

// drawPageHeader draws the provider, title and client columns at the top of
// the current page and returns the cursor below them.
func (s *Session) drawPageHeader() float64 {
	c, top := s.c, pageMargin
	company, client := s.in.Company, s.in.Client

	c.StrokeRect(pageMargin, top, contentWidth, headerHeight, colorBlack)

	// provider
	col1 := contentWidth * 0.28
	c.Image(company.LogoURL, pageMargin+8, top+8, logoSize, logoSize)
	infoX := pageMargin + 8
	if company.LogoURL != "" {
		infoX = pageMargin + 49
	}
	infoW := col1 - (infoX - pageMargin) - 4
	c.Text(company.Name, infoX, top+6, bold(7), colorBlack, TextBox{Width: infoW, Ellipsis: true})
	c.Text(company.LegalName, infoX, top+15, regular(6), colorGrey700, TextBox{Width: infoW, Ellipsis: true})
	c.Text(company.Address, infoX, top+24, regular(5.5), colorGrey700, TextBox{Width: infoW, Height: 14, Ellipsis: true})
	c.Text(company.Email, infoX, top+40, regular(5), colorGrey600, TextBox{Width: infoW, Ellipsis: true})
	c.Text(company.Phone, infoX, top+48, bold(6), colorBlack, TextBox{Width: infoW, Ellipsis: true})
	c.VLine(pageMargin+col1, top, headerHeight, colorGrey400)

	// title
	col2X, col2 := pageMargin+col1, contentWidth*0.44
	c.Text("REPORTE DE SERVICIO", col2X, top+12, bold(10), colorBlack, TextBox{Width: col2, Align: AlignCenter})
	c.Text("SISTEMA DE DETECCIÓN DE INCENDIOS", col2X, top+24, bold(6), colorGrey700, TextBox{Width: col2, Align: AlignCenter})
	const badgeW = 180.0
	badgeX := col2X + (col2-badgeW)/2
	c.FillStrokeRect(badgeX, top+38, badgeW, 11, colorGrey200, colorGrey400)
	c.Text(s.header.badge, badgeX+3, top+40.5, bold(5.5), colorBlack, TextBox{Width: badgeW - 6, Align: AlignCenter, Ellipsis: true})
	c.Text(s.header.frequencies, col2X, top+56, regular(5), colorGrey600, TextBox{Width: col2, Align: AlignCenter, Ellipsis: true})
	c.VLine(col2X+col2, top, headerHeight, colorGrey400)

	// client
	col3X, col3 := col2X+col2, contentWidth*0.28
	textX, textW := col3X+8, col3-50
	c.Text(client.Name, textX, top+6, bold(7), colorBlack, TextBox{Width: textW, Ellipsis: true})
	if client.LegalName != "" {
		c.Text(client.LegalName, textX, top+14, regular(5.5), colorGrey700, TextBox{Width: textW, Ellipsis: true})
	}
	if client.ContactName != "" {
		c.Text("Contacto: "+client.ContactName, textX, top+22, bold(5.5), colorBlack, TextBox{Width: textW, Ellipsis: true})
	}
	c.Text("Tel: "+client.Contact, textX, top+30, regular(5.5), colorBlack, TextBox{Width: textW, Ellipsis: true})
	c.Text(client.Address, textX, top+38, regular(5), colorGrey700, TextBox{Width: textW, Height: 18, Ellipsis: true})
	c.Image(client.LogoURL, col3X+col3-40, top+8, logoSize, logoSize)

	return pageMargin + headerHeight + headerGap
}

// drawInfoBands draws the schedule band and the reference standard band
// below the first page header.
func (s *Session) drawInfoBands() {
	c, r := s.c, s.in.Report

	staff := s.roster.Names(r.AssignedTechnicianIDs, func(string) string { return "Desconocido" })
	if staff == "" {
		staff = "N/A"
	}

	c.FillStrokeRect(pageMargin, s.y, contentWidth, infoBand, colorGrey100, colorGrey400)
	ty := s.y + 4
	c.Text("FECHA: ", pageMargin+4, ty, bold(6), colorGrey600, TextBox{})
	c.Text(r.ServiceDate.Format("02/01/2006"), pageMargin+30, ty, regular(6), colorBlack, TextBox{})
	c.Text("HORARIO: ", pageMargin+90, ty, bold(6), colorGrey600, TextBox{})
	c.Text(orDash(r.StartTime)+" - "+orDash(r.EndTime), pageMargin+125, ty, regular(6), colorBlack, TextBox{})
	c.Text("PERSONAL DESIGNADO: ", pageMargin+200, ty, bold(6), colorBlack, TextBox{})
	c.Text(staff, pageMargin+285, ty, regular(6), colorBlack, TextBox{Width: contentWidth - 289, Ellipsis: true})
	s.y += infoBand

	c.FillStrokeRect(pageMargin, s.y, contentWidth, refBand, colorGrey200, colorGrey400)
	c.Text("Norma de Referencia: NFPA", pageMargin+4, s.y+3, bold(6), colorBlack, TextBox{Width: contentWidth - 8, Align: AlignCenter})
	s.y += refBand + bandGap
}

func orDash(t string) string {
	if t == "" {
		return "--:--"
	}
	return t
}
