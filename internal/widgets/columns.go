package widgets

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/stat"

	"github.com/maxlab/magnetpanel/internal/tango"
)

// ColumnsTable shows spectrum attributes side by side, one column each and
// one row per element index, followed by a row of column means.
type ColumnsTable struct {
	attrs   []tango.ModelID
	infos   []tango.AttrInfo
	data    [][]float64
	summary bool
	table   table.Model
}

func NewColumnsTable(summary bool, attrs ...tango.ModelID) *ColumnsTable {
	c := &ColumnsTable{
		attrs:   attrs,
		infos:   make([]tango.AttrInfo, len(attrs)),
		data:    make([][]float64, len(attrs)),
		summary: summary,
	}
	for i, a := range attrs {
		c.infos[i] = tango.AttrInfo{Label: a.Name()}
	}
	t := table.New(table.WithColumns(c.columns(12)), table.WithFocused(true), table.WithHeight(8))
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true)
	st.Selected = st.Selected.Bold(true)
	t.SetStyles(st)
	c.table = t
	return c
}

func (c *ColumnsTable) Attrs() []tango.ModelID { return c.attrs }

func (c *ColumnsTable) Load(ctx context.Context, r tango.Reader) error {
	for i, a := range c.attrs {
		info, err := r.Info(ctx, a)
		if err != nil {
			return fmt.Errorf("attribute info %s: %w", a, err)
		}
		if info.Label == "" {
			info.Label = a.Name()
		}
		c.infos[i] = info
	}
	c.table.SetColumns(c.columns(12))
	return nil
}

func (c *ColumnsTable) columns(width int) []table.Column {
	cols := []table.Column{{Title: "#", Width: 3}}
	for _, info := range c.infos {
		cols = append(cols, table.Column{Title: info.Label, Width: width})
	}
	return cols
}

func (c *ColumnsTable) Apply(attr tango.ModelID, v tango.Value) bool {
	for i, a := range c.attrs {
		if a != attr {
			continue
		}
		if d, ok := v.Data.([]float64); ok {
			c.data[i] = append(c.data[i][:0], d...)
		} else {
			c.data[i] = nil
		}
		c.table.SetRows(toRows(c.Rows()))
		return true
	}
	return false
}

// Rows renders the cells, NaN as N/A. Short columns leave blanks.
func (c *ColumnsTable) Rows() [][]string {
	n := 0
	for _, d := range c.data {
		n = max(n, len(d))
	}
	rows := make([][]string, 0, n+1)
	for i := range n {
		row := []string{strconv.Itoa(i)}
		for j, d := range c.data {
			cell := ""
			if i < len(d) {
				cell = formatFloat(d[i], c.infos[j].Format)
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	if c.summary && n > 0 {
		rows = append(rows, c.SummaryRow())
	}
	return rows
}

// SummaryRow holds the mean of the defined elements of each column.
func (c *ColumnsTable) SummaryRow() []string {
	row := []string{"μ"}
	for j, d := range c.data {
		defined := make([]float64, 0, len(d))
		for _, f := range d {
			if !math.IsNaN(f) {
				defined = append(defined, f)
			}
		}
		if len(defined) == 0 {
			row = append(row, notAvailable)
			continue
		}
		row = append(row, formatFloat(stat.Mean(defined, nil), c.infos[j].Format))
	}
	return row
}

func toRows(cells [][]string) []table.Row {
	rows := make([]table.Row, len(cells))
	for i, r := range cells {
		rows[i] = table.Row(r)
	}
	return rows
}

func (c *ColumnsTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.table, cmd = c.table.Update(msg)
	return cmd
}

func (c *ColumnsTable) View(width, height int) string {
	colW := 12
	if len(c.attrs) > 0 {
		colW = max(6, (width-8)/len(c.attrs)-2)
	}
	c.table.SetColumns(c.columns(colW))
	c.table.SetWidth(max(12, width))
	c.table.SetHeight(max(3, height))
	return c.table.View()
}
