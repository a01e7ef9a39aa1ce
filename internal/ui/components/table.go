package components

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/cardstudy/internal/ui/theme"
)

// NewTable returns a rounded table with the themed header and cell styles.
// rowStyle, when non-nil, may override the style of a body cell.
func NewTable(headers []string, rows [][]string, rowStyle func(row, col int) (lipgloss.Style, bool)) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.TableHeader
			}
			if rowStyle != nil {
				if s, ok := rowStyle(row, col); ok {
					return s.Padding(0, 1)
				}
			}
			return theme.TableCell
		})
}
