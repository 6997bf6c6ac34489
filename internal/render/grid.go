package render

import (
	"fmt"

	"ici-report/internal/domain"
)

const (
	maxActivitiesPerTable = 12
	denseActivityColumns  = 8

	gridIDWidth            = 30.0
	gridActivityWidth      = 38.0
	gridDenseActivityWidth = 25.0

	gridHeaderHeight   = 20.0
	gridHeaderBuffer   = 45.0
	gridRowHeight      = 25.0
	gridPhotoRowHeight = 85.0
	gridPhotoWidth     = 70.0
	gridPhotoHeight    = 65.0
	gridPhotoSpacing   = 3.0

	subBannerHeight = 10.0
	subBannerRoom   = 12.0
	tableGap        = 6.0
)

// SplitActivities cuts acts into consecutive groups of at most size.
func SplitActivities(acts []domain.Activity, size int) [][]domain.Activity {
	var groups [][]domain.Activity
	for start := 0; start < len(acts); start += size {
		groups = append(groups, acts[start:min(start+size, len(acts))])
	}
	return groups
}

// gridColumns holds the column widths of one table.
type gridColumns struct {
	id       float64
	location float64
	activity float64
}

func columnsFor(n int) gridColumns {
	act := gridActivityWidth
	if n > denseActivityColumns {
		act = gridDenseActivityWidth
	}
	return gridColumns{
		id:       gridIDWidth,
		location: contentWidth - gridIDWidth - float64(n)*act,
		activity: act,
	}
}

// gridLayout draws entries as rows against activity columns, one table per
// group of at most maxActivitiesPerTable activities.
type gridLayout struct {
	*Session
}

func (g *gridLayout) draw(sec section) {
	groups := SplitActivities(sec.activities, maxActivitiesPerTable)
	for gi, acts := range groups {
		cols := columnsFor(len(acts))

		if len(groups) > 1 {
			g.drawSubBanner(gi, len(sec.activities))
		}

		g.ensureRoom(gridHeaderHeight + gridHeaderBuffer)
		g.drawTableHeader(acts, cols)

		for _, entry := range sec.entries {
			withPhotos := gi == 0 && len(entry.PhotoURLs) > 0
			h := gridRowHeight
			if withPhotos {
				h = gridPhotoRowHeight
			}
			if g.ensureRoom(h) {
				g.drawTableHeader(acts, cols)
			}
			g.drawRow(entry, acts, cols, h, withPhotos)
		}
		g.y += tableGap
	}
}

func (g *gridLayout) drawSubBanner(groupIdx, total int) {
	g.ensureRoom(subBannerRoom)
	first := groupIdx*maxActivitiesPerTable + 1
	last := min((groupIdx+1)*maxActivitiesPerTable, total)
	g.c.FillStrokeRect(pageMargin, g.y, contentWidth, subBannerHeight, colorGrey100, colorGrey400)
	g.c.Text(fmt.Sprintf("Actividades %d - %d", first, last), pageMargin+4, g.y+3, bold(5), colorGrey700, TextBox{})
	g.y += subBannerRoom
}

func (g *gridLayout) drawTableHeader(acts []domain.Activity, cols gridColumns) {
	c, y := g.c, g.y
	c.FillStrokeRect(pageMargin, y, contentWidth, gridHeaderHeight, colorGrey200, colorBlack)

	cx := pageMargin
	c.Text("ID", cx, y+8, bold(6), colorBlack, TextBox{Width: cols.id, Align: AlignCenter})
	c.VLine(cx+cols.id, y, gridHeaderHeight, colorBlack)
	cx += cols.id

	c.Text("UBICACIÓN", cx+2, y+8, bold(6), colorBlack, TextBox{Width: cols.location - 4, Ellipsis: true})
	c.VLine(cx+cols.location, y, gridHeaderHeight, colorBlack)
	cx += cols.location

	for _, act := range acts {
		c.Text(act.Name, cx+2, y+2, bold(5), colorBlack,
			TextBox{Width: cols.activity - 4, Height: 12, Align: AlignCenter, Ellipsis: true})
		c.StrokeRect(cx+2, y+14, cols.activity-4, 5, colorGrey400)
		c.Text(frequencyInitial(act), cx+2, y+15, regular(4), colorBlack,
			TextBox{Width: cols.activity - 4, Align: AlignCenter})
		c.VLine(cx+cols.activity, y, gridHeaderHeight, colorBlack)
		cx += cols.activity
	}

	g.y += gridHeaderHeight
}

func (g *gridLayout) drawRow(entry domain.ReportEntry, acts []domain.Activity, cols gridColumns, h float64, withPhotos bool) {
	c, y := g.c, g.y
	c.StrokeRect(pageMargin, y, contentWidth, h, colorBlack)

	cx := pageMargin
	c.Text(entry.CustomID, cx, y+h/2-3, bold(6), colorBlack, TextBox{Width: cols.id, Align: AlignCenter, Ellipsis: true})
	c.VLine(cx+cols.id, y, h, colorBlack)
	cx += cols.id

	c.Text(entry.Area, cx+3, y+3, regular(6), colorBlack, TextBox{Width: cols.location - 6, Height: 14, Ellipsis: true})
	if withPhotos {
		px := cx + 3
		for _, ref := range entry.PhotoURLs {
			if px+gridPhotoWidth >= cx+cols.location {
				break
			}
			if c.ClippedImage(ref, px, y+10, gridPhotoWidth, gridPhotoHeight) {
				px += gridPhotoWidth + gridPhotoSpacing
			}
		}
	}
	c.VLine(cx+cols.location, y, h, colorBlack)
	cx += cols.location

	for _, act := range acts {
		g.drawCell(entry.Results[act.ID], cx, y, cols.activity, h)
		c.VLine(cx+cols.activity, y, h, colorBlack)
		cx += cols.activity
	}

	g.y += h
}

func (g *gridLayout) drawCell(status domain.ResultStatus, x, y, w, h float64) {
	cy := y + h/2
	switch status {
	case domain.StatusOK:
		g.c.Dot(x+w/2, cy, 2.5, colorGreen)
	case domain.StatusNOK:
		g.c.Text("X", x, cy-6, bold(12), colorRed, TextBox{Width: w, Align: AlignCenter})
	case domain.StatusNA, domain.StatusNR:
		g.c.Text(string(status), x, cy-3, regular(5), colorGrey600, TextBox{Width: w, Align: AlignCenter})
	}
}

func frequencyInitial(act domain.Activity) string {
	for _, r := range act.FrequencyLabel() {
		return string(r)
	}
	return ""
}
