package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/soltixdb/airaudit/internal/analytics/stats"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/services"
)

const clockLayout = "15:04"

func newTable(w io.Writer, title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tbl
}

func num(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func window(w dataset.Window) string {
	return w.Start.Format(clockLayout) + "-" + w.End.Format(clockLayout)
}

func groupingRows(tbl table.Writer, label string, g services.GroupingReport) {
	tbl.AppendRow(table.Row{label + " selected", g.Selected})
	tbl.AppendRow(table.Row{label + " after outlier filter", g.Filtered})
	tbl.AppendRow(table.Row{label + " ideal group", g.Kept})
	tbl.AppendRow(table.Row{label + " stop", g.StopReason})
}

func basicRows(tbl table.Writer, b stats.Basic) {
	tbl.AppendRow(table.Row{"Mean", num(b.Mean)})
	tbl.AppendRow(table.Row{"Median", num(b.Median)})
	tbl.AppendRow(table.Row{"Minimum", num(b.Min)})
	tbl.AppendRow(table.Row{"Maximum", num(b.Max)})
	tbl.AppendRow(table.Row{"SD", num(b.SD)})
}

func renderZeroAir(w io.Writer, r *services.ZeroAirReport) {
	tbl := newTable(w, fmt.Sprintf("Zero air: %s %s", r.Channel, window(r.Window)))
	groupingRows(tbl, "Points", r.Grouping)
	tbl.AppendSeparator()
	basicRows(tbl, r.Stats)
	tbl.AppendFooter(table.Row{"Flagged rows", r.Flagged})
	tbl.Render()
}

func renderCalibration(w io.Writer, r *services.CalibrationReport) {
	tbl := newTable(w, fmt.Sprintf("Calibration: %s %s @ %s", r.Channel, window(r.Window), num(r.Concentration)))
	groupingRows(tbl, "Points", r.Grouping)
	tbl.AppendSeparator()
	basicRows(tbl, r.Stats)
	tbl.AppendSeparator()
	tbl.AppendRow(table.Row{"% Recovery", num(r.Audit.PercentRecovery)})
	tbl.AppendRow(table.Row{"Max % recovery", num(r.Audit.MaxPercentRecovery)})
	tbl.AppendRow(table.Row{"Min % recovery", num(r.Audit.MinPercentRecovery)})
	tbl.AppendRow(table.Row{"% Difference", num(r.Audit.PercentDifference)})
	rangeDiff := "undefined"
	if v, err := r.Audit.RangeDifference(); err == nil {
		rangeDiff = num(v)
	}
	tbl.AppendRow(table.Row{"Range % difference", rangeDiff})
	tbl.AppendFooter(table.Row{"Flagged rows", r.Flagged})
	tbl.Render()
}

func renderMDL(w io.Writer, r *services.MDLReport) {
	tbl := newTable(w, fmt.Sprintf("MDL: %s spike %s blank %s (%s)",
		r.Channel, window(r.SpikeWindow), window(r.BlankWindow), r.TimeAveraging))
	tbl.AppendHeader(table.Row{"", "Spike", "Blank"})
	tbl.AppendRow(table.Row{"Selected", r.Spike.Selected, r.Blank.Selected})
	tbl.AppendRow(table.Row{"Ideal group", r.Spike.Kept, r.Blank.Kept})
	tbl.AppendRow(table.Row{"n", r.Result.SpikeCount, r.Result.BlankCount})
	tbl.AppendRow(table.Row{"Mean", num(r.SpikeStats.Mean), num(r.BlankStats.Mean)})
	tbl.AppendRow(table.Row{"SD", num(r.Result.SpikeSD), num(r.Result.BlankSD)})

	blankFactor := "rank " + fmt.Sprint(r.Result.BlankRank)
	if r.Result.BlankBranch == stats.BranchStudentT {
		blankFactor = num(r.Result.BlankT)
	}
	tbl.AppendRow(table.Row{"t / rank", num(r.Result.SpikeT), blankFactor})
	tbl.AppendRow(table.Row{"MDL", num(r.Result.MDLs), num(r.Result.MDLb)})
	tbl.AppendFooter(table.Row{"MDL", num(r.Result.MDL), fmt.Sprintf("%d flagged", r.Flagged)})
	tbl.Render()
}

func renderMet(w io.Writer, r *services.MetReport) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("iMet cross-check " + window(r.Window))
	tbl.AppendHeader(table.Row{"Variable", "Matched", "Undefined", "Mean %", "Min %", "Max %"})
	for _, v := range r.Variables {
		row := table.Row{v.Title, v.Comparison.Matched, v.Comparison.Undefined, "-", "-", "-"}
		if s := v.Comparison.Stats; s != nil {
			row[3], row[4], row[5] = num(s.Mean), num(s.Min), num(s.Max)
		}
		tbl.AppendRow(row)
	}
	footer := fmt.Sprintf("%d flagged", r.Flagged)
	if len(r.Skipped) > 0 {
		footer += ", skipped: " + strings.Join(r.Skipped, "; ")
	}
	tbl.AppendFooter(table.Row{footer})
	tbl.Render()
}
