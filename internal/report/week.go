// Package report renders the weekly booking calendar as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/timegrid"
)

// Sheet names in the workbook.
const (
	CalendarSheet = "Calendar"
	BookingsSheet = "Bookings"
)

// BookingsHeader is the header row of the flat bookings sheet.
var BookingsHeader = []string{"Date", "Start", "End", "Hours", "Room", "Booked By", "Booking ID"}

// WriteWeekXLSX writes week as an XLSX workbook to w.
func WriteWeekXLSX(w io.Writer, week application.WeekSchedule) error {
	f, err := BuildWeek(week)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildWeek lays out week in a new workbook. The caller closes the file.
func BuildWeek(week application.WeekSchedule) (*excelize.File, error) {
	f := excelize.NewFile()
	b := &builder{f: f, roomStyles: make(map[string]int)}
	if err := b.build(week); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

type builder struct {
	f           *excelize.File
	headerStyle int
	timeStyle   int
	roomStyles  map[string]int
}

func (b *builder) build(week application.WeekSchedule) error {
	index, err := b.f.NewSheet(CalendarSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if _, err := b.f.NewSheet(BookingsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := b.f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	b.f.SetActiveSheet(index)

	if err := b.styles(); err != nil {
		return err
	}
	if err := b.calendar(week); err != nil {
		return err
	}
	return b.bookings(week)
}

func (b *builder) styles() error {
	var err error
	b.headerStyle, err = b.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	b.timeStyle, err = b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#6B7280"},
		Alignment: &excelize.Alignment{Horizontal: "right", Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("create time style: %w", err)
	}
	return nil
}

func (b *builder) roomStyle(color string) (int, error) {
	if style, ok := b.roomStyles[color]; ok {
		return style, nil
	}
	if color == "" {
		color = application.DefaultRoomColor
	}
	style, err := b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		return 0, fmt.Errorf("create room style: %w", err)
	}
	b.roomStyles[color] = style
	return style, nil
}

// calendar writes one column per day and one row per hour. A cell lists every
// booking covering that hour.
func (b *builder) calendar(week application.WeekSchedule) error {
	const sheet = CalendarSheet

	title := "Week"
	if len(week.Days) > 0 {
		title = "Week of " + week.Days[0].At(0, time.UTC).Format("Jan 2, 2006")
	}
	if err := b.f.SetCellValue(sheet, "A1", title); err != nil {
		return err
	}

	if err := b.setHeader(sheet, 1, 2, "Time"); err != nil {
		return err
	}
	for i, day := range week.Days {
		label := day.At(0, time.UTC).Format("Mon Jan 2")
		if err := b.setHeader(sheet, i+2, 2, label); err != nil {
			return err
		}
	}

	hours := timegrid.EnumerateHours(week.OpenHour, week.CloseHour)
	for r, hour := range hours {
		cell, err := excelize.CoordinatesToCellName(1, r+3)
		if err != nil {
			return err
		}
		if err := b.f.SetCellValue(sheet, cell, timegrid.SlotLabel(hour)); err != nil {
			return err
		}
		if err := b.f.SetCellStyle(sheet, cell, cell, b.timeStyle); err != nil {
			return err
		}
	}

	for c, day := range week.Days {
		for r, hour := range hours {
			var lines []string
			var color string
			for _, entry := range week.Entries {
				if entry.Date != day || hour < entry.StartHour || hour >= entry.EndHour() {
					continue
				}
				lines = append(lines, entryLine(entry, hour))
				color = entry.RoomColor
			}
			if len(lines) == 0 {
				continue
			}

			cell, err := excelize.CoordinatesToCellName(c+2, r+3)
			if err != nil {
				return err
			}
			if err := b.f.SetCellValue(sheet, cell, strings.Join(lines, "\n")); err != nil {
				return err
			}
			if len(lines) > 1 {
				color = application.DefaultRoomColor
			}
			style, err := b.roomStyle(color)
			if err != nil {
				return err
			}
			if err := b.f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}

	if err := b.f.SetColWidth(sheet, "A", "A", 12); err != nil {
		return err
	}
	if len(week.Days) > 0 {
		last, err := excelize.ColumnNumberToName(len(week.Days) + 1)
		if err != nil {
			return err
		}
		if err := b.f.SetColWidth(sheet, "B", last, 28); err != nil {
			return err
		}
	}
	return b.f.SetPanes(sheet, &excelize.Panes{Freeze: true, XSplit: 1, YSplit: 2, TopLeftCell: "B3", ActivePane: "bottomRight"})
}

func entryLine(entry application.BookingDetail, hour int) string {
	if hour != entry.StartHour {
		return fmt.Sprintf("%s: %s (cont.)", entry.RoomName, entry.PersonName)
	}
	return fmt.Sprintf("%s: %s (%s - %s)", entry.RoomName, entry.PersonName,
		timegrid.SlotLabel(entry.StartHour), timegrid.SlotLabel(entry.EndHour()))
}

func (b *builder) bookings(week application.WeekSchedule) error {
	const sheet = BookingsSheet

	for col, header := range BookingsHeader {
		if err := b.setHeader(sheet, col+1, 1, header); err != nil {
			return err
		}
	}
	for i, entry := range week.Entries {
		row := []any{
			entry.Date.String(),
			timegrid.HoursToLabel(entry.StartHour),
			timegrid.HoursToLabel(entry.EndHour()),
			entry.Duration,
			entry.RoomName,
			entry.PersonName,
			entry.ID,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := b.f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write booking row: %w", err)
		}
	}
	return b.f.SetColWidth(sheet, "A", "G", 16)
}

func (b *builder) setHeader(sheet string, col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := b.f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set header cell %s: %w", cell, err)
	}
	return b.f.SetCellStyle(sheet, cell, cell, b.headerStyle)
}
