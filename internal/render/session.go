// Package render lays a service report out on Letter pages.
//
// A Session owns the vertical cursor for one build. Every drawing step checks
// the remaining room first and, when the next block does not fit, starts a new
// page and redraws the page header before continuing.
package render

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"

	"ici-report/internal/assets"
	"ici-report/internal/domain"
)

const (
	pageWidth     = 612.0
	pageHeight    = 792.0
	pageMargin    = 14.4
	bottomReserve = 25.0
	contentWidth  = pageWidth - 2*pageMargin

	// pageLimit is the lowest y a block may reach.
	pageLimit = pageHeight - pageMargin - bottomReserve
)

// Input is everything one document needs, fully resolved by the caller.
type Input struct {
	Report      domain.ServiceReport
	Policy      domain.Policy
	Client      domain.Client
	Company     domain.CompanySettings
	Devices     []domain.DeviceDefinition
	Technicians []domain.Technician
}

// Stats describes a finished layout.
type Stats struct {
	Pages          int
	Sections       int
	DroppedEntries int
}

// Session is the state of one layout pass. It is not safe for concurrent use.
type Session struct {
	c      *Canvas
	in     Input
	roster domain.Roster
	header pageHeader
	logger *zap.Logger

	y     float64
	top   float64 // cursor right below the page header
	pages int
}

func newSession(in Input, cache *assets.Cache, b Backend, logger *zap.Logger) *Session {
	return &Session{
		c:      newCanvas(b, cache),
		in:     in,
		roster: domain.NewRoster(in.Technicians),
		header: newPageHeader(in),
		logger: logger,
	}
}

// Render draws the whole document on b. The cache must already hold every
// reference the report uses; lookups never block.
func Render(in Input, cache *assets.Cache, b Backend, logger *zap.Logger) (Stats, error) {
	s := newSession(in, cache, b, logger)

	s.newPage()
	s.drawInfoBands()
	stats := s.drawDeviceSections()
	s.drawFindings()
	s.drawSummary()
	s.drawSignatures()

	stats.Pages = s.pages
	if err := b.Error(); err != nil {
		return stats, fmt.Errorf("render report %s: %w", in.Report.ID, err)
	}
	return stats, nil
}

// Build renders in to PDF bytes through the fpdf backend.
func Build(in Input, cache *assets.Cache, logger *zap.Logger) ([]byte, Stats, error) {
	b := NewFpdfBackend(DocumentInfo{
		Title:   "Reporte " + in.Client.Name,
		Author:  in.Company.Name,
		Creator: "ici-report",
	}, logger)

	stats, err := Render(in, cache, b, logger)
	if err != nil {
		return nil, stats, err
	}

	var buf bytes.Buffer
	if err := b.Output(&buf); err != nil {
		return nil, stats, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), stats, nil
}

// fits reports whether a block of height h fits below the cursor.
func (s *Session) fits(h float64) bool {
	return s.y+h <= pageLimit
}

// ensureRoom breaks to a new page when h does not fit. It reports whether a
// break happened.
func (s *Session) ensureRoom(h float64) bool {
	if s.fits(h) {
		return false
	}
	s.newPage()
	return true
}

// newPage starts a page and leaves the cursor below the page header.
func (s *Session) newPage() {
	s.c.b.AddPage()
	s.pages++
	s.y = s.drawPageHeader()
	s.top = s.y
}

// pageRoom is the height available to a block on a fresh page.
func (s *Session) pageRoom() float64 {
	return pageLimit - s.top
}
