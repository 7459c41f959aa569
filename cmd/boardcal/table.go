package main

import (
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dukerupert/boardcal/internal/calendar"
)

// upcomingRows flattens an upcoming list into (date, kind, what, when)
// rows ordered by date. Within a day holidays come first, then birthdays,
// then events in their listed order.
func upcomingRows(u calendar.Upcoming) [][]string {
	dates := make(map[string]bool)
	for d := range u.Events {
		dates[d] = true
	}
	for d := range u.Holidays {
		dates[d] = true
	}
	for d := range u.Birthdays {
		dates[d] = true
	}
	sorted := make([]string, 0, len(dates))
	for d := range dates {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	var rows [][]string
	for _, d := range sorted {
		for _, h := range u.Holidays[d] {
			rows = append(rows, []string{d, "holiday", h, ""})
		}
		for _, b := range u.Birthdays[d] {
			rows = append(rows, []string{d, "birthday", b, ""})
		}
		for _, o := range u.Events[d] {
			when := "all day"
			if !o.AllDay {
				when = o.Start.Time[:5] + "-" + o.End.Time[:5]
			}
			rows = append(rows, []string{d, "event", o.Title, when})
		}
	}
	return rows
}

// writeTable pads each column to its widest cell by display width, so
// wide runes in titles keep the columns aligned.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for _, row := range append([][]string{header}, rows...) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if n := runewidth.StringWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sb strings.Builder
	line := func(row []string) {
		var cells []string
		for i, width := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells = append(cells, runewidth.FillRight(cell, width))
		}
		sb.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		sb.WriteString("\n")
	}
	line(header)
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("-", n)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
