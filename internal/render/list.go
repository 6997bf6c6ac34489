package render

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"ici-report/internal/domain"
)

const (
	listAreaWidth      = contentWidth - 8
	listInset          = 4.0
	listEntryHeader    = 14.0
	listRowHeight      = 18.0
	listPhotoSize      = 64.0
	listPhotoSpacing   = 4.0
	listPhotoRowGap    = 6.0
	listObsMaxWidth    = 300.0
	listObsGap         = 4.0
	listFirstRowBuffer = 4.0
	listNextRowBuffer  = 2.0
	listNameWidth      = 100.0
	listBadgeOffset    = 110.0
	listTrailingGap    = 6.0
)

var listObsFont = regular(4)

// listPhotosPerRow is how many thumbnails fit across one row.
var listPhotosPerRow = int(math.Floor((listAreaWidth - 8) / (listPhotoSize + listPhotoSpacing)))

func listObsWidth() float64 {
	return min(listObsMaxWidth, listAreaWidth-8)
}

// listRow is one (entry, activity) pair of an itemized section.
type listRow struct {
	entry    domain.ReportEntry
	activity domain.Activity
	data     domain.ActivityData
	first    bool
}

func (r listRow) hasPhotos() bool { return len(r.data.PhotoURLs) > 0 }

func (r listRow) observations() string { return strings.TrimSpace(r.data.Observations) }

// buildListRows emits, per entry, one row for every section activity that the
// entry has a result key for, in definition order.
func buildListRows(entries []domain.ReportEntry, acts []domain.Activity) []listRow {
	var rows []listRow
	for _, e := range entries {
		first := true
		for _, a := range acts {
			if !e.HasResult(a.ID) {
				continue
			}
			rows = append(rows, listRow{
				entry:    e,
				activity: a,
				data:     e.ActivityData[a.ID],
				first:    first,
			})
			first = false
		}
	}
	return rows
}

// listLayout draws one row per (entry, activity) pair with the photos and
// observations of that activity. Row height follows the content.
type listLayout struct {
	*Session
}

func (l *listLayout) draw(sec section) {
	for i, row := range buildListRows(sec.entries, sec.activities) {
		h := l.rowHeight(row)
		if h+listEntryHeader > l.pageRoom() {
			l.logger.Warn("List row taller than a page; content past the page bottom is cut",
				zap.String("report_id", l.in.Report.ID),
				zap.String("instance_id", row.entry.InstanceID),
				zap.String("activity_id", row.activity.ID),
				zap.Int("photos", len(row.data.PhotoURLs)),
				zap.Float64("row_height", h),
			)
		}
		if row.first {
			l.ensureRoom(h + listFirstRowBuffer)
			l.drawEntryBanner(row.entry)
		} else if l.ensureRoom(h + listNextRowBuffer) {
			l.drawEntryBanner(row.entry)
		}
		l.drawRow(row, i, h)
	}
	l.y += listTrailingGap
}

func (l *listLayout) rowHeight(row listRow) float64 {
	h := listRowHeight
	if n := len(row.data.PhotoURLs); n > 0 {
		photoRows := (n + listPhotosPerRow - 1) / listPhotosPerRow
		h += float64(photoRows) * (listPhotoSize + listPhotoRowGap)
	}
	if obs := row.observations(); obs != "" {
		h += l.c.TextHeight(obs, listObsFont, listObsWidth()) + listObsGap
	}
	return h
}

func (l *listLayout) drawEntryBanner(e domain.ReportEntry) {
	c, x := l.c, pageMargin+listInset
	c.FillStrokeRect(pageMargin, l.y, listAreaWidth, listEntryHeader, colorGrey200, colorGrey300)
	c.Text(e.CustomID, x, l.y+3, bold(6), colorBlack, TextBox{Width: 60, Ellipsis: true})
	c.Text(e.Area, x+65, l.y+3, regular(5), colorGrey600,
		TextBox{Width: listAreaWidth - 73, Align: AlignRight, Ellipsis: true})
	l.y += listEntryHeader
}

func (l *listLayout) drawRow(row listRow, idx int, h float64) {
	c, x, y := l.c, pageMargin+listInset, l.y

	if idx%2 == 0 {
		c.FillRect(pageMargin, y, listAreaWidth, h, colorGrey50)
	}

	c.Text(row.activity.Name, x, y+2, bold(5), colorBlack, TextBox{Width: listNameWidth, Ellipsis: true})

	badgeX := x + listBadgeOffset
	c.StrokeRect(badgeX, y+2, 20, 8, colorGrey400)
	c.Text(row.activity.FrequencyLabel(), badgeX, y+3, regular(4), colorGrey600,
		TextBox{Width: 20, Align: AlignCenter, Ellipsis: true})

	status := row.entry.Results[row.activity.ID]
	dot, label, labelColor, labelSize := statusMarks(status)
	c.Dot(badgeX+35, y+6, 4, dot)
	if label != "" {
		c.Text(label, badgeX+50, y+2, bold(labelSize), labelColor, TextBox{Width: listAreaWidth - 160})
	}

	if row.hasPhotos() {
		px, drawn := x, 0
		for _, ref := range row.data.PhotoURLs {
			if drawn >= listPhotosPerRow {
				break
			}
			if c.ClippedImage(ref, px, y+12, listPhotoSize, listPhotoSize) {
				px += listPhotoSize + listPhotoSpacing
				drawn++
			}
		}
	}

	if obs := row.observations(); obs != "" {
		obsY := y + 12
		if row.hasPhotos() {
			obsY += listPhotoSize + 2
		}
		c.Text(obs, x, obsY, listObsFont, colorGrey600, TextBox{Width: listObsWidth()})
	}

	c.StrokeRect(pageMargin, y, listAreaWidth, h, colorGrey300)
	l.y = y + h
}

// statusMarks returns the dot colour and label of a list row status.
func statusMarks(status domain.ResultStatus) (dot Color, label string, labelColor Color, size float64) {
	switch status {
	case domain.StatusOK:
		return colorGreen, "", colorGreen, 5
	case domain.StatusNOK:
		return colorRed, "X", colorRed, 10
	case domain.StatusNA:
		return colorGrey300, "N/A", colorGrey600, 5
	case domain.StatusNR:
		return colorGrey300, "NR", colorGrey600, 5
	default:
		return colorGrey300, "-", colorGrey600, 5
	}
}
