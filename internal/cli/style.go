package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/noah-isme/pe-space-master/internal/models"
)

var (
	purple  = lipgloss.Color("#bd93f9")
	green   = lipgloss.Color("#50fa7b")
	orange  = lipgloss.Color("#ffb86c")
	red     = lipgloss.Color("#ff5555")
	comment = lipgloss.Color("#6272a4")
)

type styles struct {
	title lipgloss.Style
	box   lipgloss.Style
	good  lipgloss.Style
	warn  lipgloss.Style
	bad   lipgloss.Style
	muted lipgloss.Style
	label lipgloss.Style
}

func newStyles(plain bool) styles {
	if plain {
		s := lipgloss.NewStyle()
		return styles{title: s, box: s, good: s, warn: s, bad: s, muted: s, label: s}
	}
	return styles{
		title: lipgloss.NewStyle().Foreground(purple).Bold(true),
		box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(comment).
			Padding(0, 1),
		good:  lipgloss.NewStyle().Foreground(green),
		warn:  lipgloss.NewStyle().Foreground(orange),
		bad:   lipgloss.NewStyle().Foreground(red).Bold(true),
		muted: lipgloss.NewStyle().Foreground(comment),
		label: lipgloss.NewStyle().Width(14),
	}
}

func renderSummary(st styles, policy string, days int, summary models.AllocationSummary) string {
	lines := []string{
		st.title.Render("Allocation summary"),
		st.label.Render("Policy") + policy,
		st.label.Render("School days") + fmt.Sprint(days),
		st.label.Render("Records") + fmt.Sprint(summary.Total),
		st.label.Render("Allocated") + st.good.Render(fmt.Sprint(summary.Allocated)),
		st.label.Render("TBC") + st.warn.Render(fmt.Sprint(summary.Unallocated)),
		st.label.Render("Conflicts") + conflictCount(st, summary.Conflicts),
	}
	for _, r := range summary.Reasons {
		lines = append(lines, st.muted.Render(fmt.Sprintf("  %4d  %s", r.Count, r.Reason)))
	}
	return st.box.Render(strings.Join(lines, "\n"))
}

func conflictCount(st styles, n int) string {
	if n == 0 {
		return st.good.Render("0")
	}
	return st.bad.Render(fmt.Sprint(n))
}

func renderConflicts(st styles, conflicts []models.AllocationRecord) string {
	if len(conflicts) == 0 {
		return st.good.Render("No space conflicts")
	}
	var b strings.Builder
	b.WriteString(st.bad.Render(fmt.Sprintf("%d records share a space", len(conflicts))))
	for _, r := range conflicts {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s %-9s %-14s %-8s %-12s %s", r.Date, r.Day, r.Period, r.Class, r.Space, st.muted.Render(r.Staff)))
	}
	return b.String()
}
