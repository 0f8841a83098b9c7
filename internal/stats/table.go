package stats

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typerpg/internal/model"
)

// RenderLevelBoard prints the levels leaderboard.
func RenderLevelBoard(w io.Writer, entries []model.LevelEntry, width int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No players yet.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Username,
			fmt.Sprintf("%d", e.Level),
			fmt.Sprintf("%d", e.XP),
		})
	}
	return writeTable(w, []string{"#", "Player", "Level", "XP"}, rows, map[int]bool{0: true, 2: true, 3: true}, width)
}

// RenderWPMBoard prints today's daily challenge leaderboard.
func RenderWPMBoard(w io.Writer, entries []model.WPMEntry, width int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Nobody finished today's daily challenge yet.")
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Username,
			fmt.Sprintf("%d", e.WPM),
		})
	}
	return writeTable(w, []string{"#", "Player", "WPM"}, rows, map[int]bool{0: true, 2: true}, width)
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool, width int) error {
	for _, line := range formatTable(headers, rows, rightAlign) {
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		if rightAlignCols[i] {
			b.WriteString(runewidth.FillLeft(cell, widths[i]))
		} else {
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
	}
	return strings.TrimRight(b.String(), " ")
}
