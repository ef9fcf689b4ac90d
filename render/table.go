// Package render paints snapshots as text tables for a terminal.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"optionchain/models"
)

const (
	reset       = "\x1b[0m"
	bold        = "\x1b[1m"
	bgGreen     = "\x1b[48;5;22m"
	bgPink      = "\x1b[48;5;203m"
	bgRed       = "\x1b[48;5;196m"
	bgTaupe     = "\x1b[48;5;138m"
	clearScreen = "\x1b[H\x1b[2J"
)

type style struct {
	bold bool
	bg   string
}

func (s style) wrap(text string) string {
	if !s.bold && s.bg == "" {
		return text
	}
	var b strings.Builder
	if s.bold {
		b.WriteString(bold)
	}
	b.WriteString(s.bg)
	b.WriteString(text)
	b.WriteString(reset)
	return b.String()
}

type cellKey struct {
	row int
	col models.Column
}

// styles resolves directives to one style per cell. Later rules win over
// earlier ones: extremes, then the ATM row, then strike labels, then diff sign.
func styles(snap models.Snapshot) map[cellKey]style {
	out := make(map[cellKey]style)
	cols := snap.Data.Columns
	var atm []models.Directive
	var rest []models.Directive
	for _, d := range snap.Data.Emphasis {
		switch d.Category {
		case models.CategoryMax:
			out[cellKey{d.Row, *d.Column}] = style{bg: bgGreen}
		case models.CategoryMin:
			out[cellKey{d.Row, *d.Column}] = style{bg: bgPink}
		case models.CategoryATM:
			atm = append(atm, d)
		default:
			rest = append(rest, d)
		}
	}
	for _, d := range atm {
		for _, c := range cols {
			out[cellKey{d.Row, c}] = style{bg: bgRed}
		}
	}
	for _, d := range rest {
		if d.Column == nil {
			continue
		}
		k := cellKey{d.Row, *d.Column}
		switch d.Category {
		case models.CategoryLabel:
			out[k] = style{bold: true, bg: bgTaupe}
		case models.CategoryPositive:
			out[k] = style{bold: true, bg: bgRed}
		case models.CategoryNegative:
			out[k] = style{bold: true, bg: bgGreen}
		}
	}
	return out
}

// Table writes the metadata strip and the chain. With color=false no escape
// codes are emitted.
func Table(w io.Writer, snap models.Snapshot, color bool) error {
	m := snap.Meta
	header := fmt.Sprintf("%s  Underlying: %s  Expiry: %s  Last Updated: %s\n",
		m.Symbol, FormatValue(m.Underlying, true), m.Expiry, orDash(m.LastUpdated))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if m.Error != nil {
		_, err := fmt.Fprintf(w, "%s\n", m.Error.Message)
		return err
	}

	cols := snap.Data.Columns
	rows := snap.Data.Rows
	cells := make([][]string, len(rows))
	widths := make([]int, len(cols))
	for j, c := range cols {
		widths[j] = max(len(c.Name), len(string(c.Group)))
	}
	for i, row := range rows {
		cells[i] = make([]string, len(cols))
		for j, c := range cols {
			v, ok := row.Value(c)
			cells[i][j] = FormatValue(v, ok)
			widths[j] = max(widths[j], len(cells[i][j]))
		}
	}

	var b strings.Builder
	for j, c := range cols {
		label := ""
		if j == 0 || cols[j-1].Group != c.Group {
			label = string(c.Group)
		}
		fmt.Fprintf(&b, "%-*s ", widths[j], label)
	}
	b.WriteString("\n")
	for j, c := range cols {
		fmt.Fprintf(&b, "%*s ", widths[j], c.Name)
	}
	b.WriteString("\n")

	var st map[cellKey]style
	if color {
		st = styles(snap)
	}
	for i := range rows {
		for j, c := range cols {
			text := fmt.Sprintf("%*s", widths[j], cells[i][j])
			if color {
				text = st[cellKey{i, c}].wrap(text)
			}
			b.WriteString(text)
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatValue prints whole numbers without decimals, others with two.
func FormatValue(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return "-"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Terminal repaints the whole screen on every snapshot.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

func NewTerminal(w io.Writer, color bool) *Terminal {
	return &Terminal{w: w, color: color}
}

// NewStdout enables color only when stdout is a terminal.
func NewStdout() *Terminal {
	return NewTerminal(os.Stdout, IsTerminal(os.Stdout))
}

func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (t *Terminal) Publish(snap models.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.color {
		_, _ = io.WriteString(t.w, clearScreen)
	}
	_ = Table(t.w, snap, t.color)
}
