package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionchain/emphasis"
	"optionchain/models"
)

func f64(v float64) *float64 { return &v }

func sample() models.Snapshot {
	rows := models.ChainTable{
		{Strike: 19500, OICall: f64(1000), OIPut: f64(500), NetVolCall: 1100, DiffPct: f64(100.0 / 3), LTPCall: f64(118.2)},
		{Strike: 19600, OICall: f64(2100), NetVolCall: -300},
	}
	return models.Snapshot{
		Data: models.ChainView{
			Columns:  models.Columns(),
			Rows:     rows,
			Emphasis: emphasis.Compute(rows, 19550),
		},
		Meta: models.Meta{Symbol: "NIFTY", Expiry: "28-Apr-2026", Underlying: 19550.35, LastUpdated: "15:30:00"},
	}
}

func TestTable_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sample(), false))
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "NIFTY  Underlying: 19550.35  Expiry: 28-Apr-2026  Last Updated: 15:30:00", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Call"))
	assert.Contains(t, lines[1], "Put")
	assert.Contains(t, lines[2], "OI_Chg%")
	assert.Contains(t, lines[3], "19500")
	assert.Contains(t, lines[3], "33.33")
	assert.Contains(t, lines[3], "118.20")
	assert.Contains(t, lines[4], "-300")
	assert.Contains(t, lines[4], " - ", "absent values print as a dash")
	assert.NotContains(t, out, "\x1b[")

	callIdx := strings.Index(lines[1], "Call")
	strikeIdx := strings.Index(lines[2], "Strike")
	putIdx := strings.Index(lines[1], "Put")
	dIdx := strings.LastIndex(lines[1], "D")
	assert.True(t, callIdx < strikeIdx && strikeIdx < putIdx && putIdx < dIdx, "groups in Call | Strike | Put | D order")
}

func TestTable_Color(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sample(), true))
	out := buf.String()

	assert.Contains(t, out, bgRed, "ATM row and positive diff")
	assert.Contains(t, out, bold+bgTaupe, "strike labels")
	assert.Contains(t, out, reset)
}

func TestTable_Error(t *testing.T) {
	snap := models.Snapshot{Meta: models.Meta{
		Symbol: "NIFTY",
		Expiry: "28-Apr-2026",
		Error:  &models.ErrorInfo{Kind: "blocked", Message: "NSE blocked request (HTTP 403)"},
	}}
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, snap, false))
	assert.Contains(t, buf.String(), "Last Updated: -")
	assert.Contains(t, buf.String(), "NSE blocked request (HTTP 403)")
}

func TestStyles_LaterRulesWin(t *testing.T) {
	st := styles(sample())

	assert.Equal(t, style{bg: bgRed}, st[cellKey{0, models.ColNetVolCall}], "ATM row overrides the max highlight")
	assert.Equal(t, style{bold: true, bg: bgTaupe}, st[cellKey{0, models.ColStrike}])
	assert.Equal(t, style{bold: true, bg: bgRed}, st[cellKey{0, models.ColDiffPct}])
	assert.Equal(t, style{bg: bgPink}, st[cellKey{1, models.ColNetVolCall}])
	assert.Equal(t, style{bold: true, bg: bgTaupe}, st[cellKey{1, models.ColStrike}])
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", FormatValue(0, false))
	assert.Equal(t, "19500", FormatValue(19500, true))
	assert.Equal(t, "-12.35", FormatValue(-12.346, true))
	assert.Equal(t, "0", FormatValue(0, true))
}

func TestTerminal_Publish(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, false).Publish(sample())
	assert.True(t, strings.HasPrefix(buf.String(), "NIFTY"))

	buf.Reset()
	NewTerminal(&buf, true).Publish(sample())
	assert.True(t, strings.HasPrefix(buf.String(), clearScreen))
}
