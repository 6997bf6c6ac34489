package render

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ici-report/internal/domain"
)

const (
	sectionHeaderHeight = 16.0
	sectionRoomBuffer   = 30.0
	sectionGap          = 8.0
)

// section is one device definition with its entries and the activities
// scheduled for them.
type section struct {
	def        domain.DeviceDefinition
	entries    []domain.ReportEntry
	activities []domain.Activity
}

// sectionLayout draws the body of a section below its header.
type sectionLayout interface {
	draw(sec section)
}

func (s *Session) layoutFor(def domain.DeviceDefinition) sectionLayout {
	if def.IsListView() {
		return &listLayout{Session: s}
	}
	return &gridLayout{Session: s}
}

// planSections groups the report entries by device definition and drops
// groups that have nothing to show.
func planSections(in Input, logger *zap.Logger) ([]section, int) {
	groups, dropped := domain.GroupEntries(in.Report.Entries, in.Policy.Devices)
	for _, e := range dropped {
		logger.Warn("Entry has no policy device",
			zap.String("report_id", in.Report.ID),
			zap.String("instance_id", e.InstanceID),
		)
	}

	sections := make([]section, 0, len(groups))
	for _, g := range groups {
		def, ok := domain.FindDefinition(in.Devices, g.DefinitionID)
		if !ok {
			logger.Debug("Device definition not in catalog, section skipped",
				zap.String("definition_id", g.DefinitionID),
			)
			continue
		}
		acts := domain.RelevantActivities(def, g.Entries)
		if len(acts) == 0 {
			logger.Debug("No scheduled activities, section skipped",
				zap.String("definition_id", g.DefinitionID),
			)
			continue
		}
		sections = append(sections, section{def: def, entries: g.Entries, activities: acts})
	}
	return sections, len(dropped)
}

func (s *Session) drawDeviceSections() Stats {
	sections, dropped := planSections(s.in, s.logger)
	for _, sec := range sections {
		s.ensureRoom(sectionHeaderHeight + sectionRoomBuffer)
		s.drawSectionHeader(sec)
		s.layoutFor(sec.def).draw(sec)
		s.y += sectionGap
	}
	return Stats{Sections: len(sections), DroppedEntries: dropped}
}

func (s *Session) drawSectionHeader(sec section) {
	c := s.c
	c.FillStrokeRect(pageMargin, s.y, contentWidth, sectionHeaderHeight, colorGrey800, colorBlack)

	name := upperES.String(sec.def.Name)
	nameFont := bold(7)
	c.Text(name, pageMargin+5, s.y+4, nameFont, colorWhite, TextBox{})
	nameW := c.TextWidth(name, nameFont)
	c.Text(fmt.Sprintf("  (%d U.)", len(sec.entries)), pageMargin+5+nameW+2, s.y+4, regular(6), colorGrey400, TextBox{})

	ids := s.in.Report.SectionAssignments[sec.def.ID]
	names := s.roster.Names(ids, func(id string) string { return id })
	if strings.TrimSpace(names) == "" {
		names = "General"
	}
	c.Text("RESPONSABLES: "+names, pageMargin+contentWidth-150, s.y+5, regular(5), colorWhite,
		TextBox{Width: 145, Align: AlignRight, Ellipsis: true})

	s.y += sectionHeaderHeight
}
