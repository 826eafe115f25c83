package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	medtimerv1 "github.com/osa030/medtimer/internal/api/medtimerv1"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	phaseStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("35"))
	pausedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// formatClock renders seconds as M:SS, or H:MM:SS from an hour up.
func formatClock(seconds int32) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func renderPhase(phase string, paused bool) string {
	if paused {
		return pausedStyle.Render(phase + " (paused)")
	}
	return phaseStyle.Render(phase)
}

func renderState(st *medtimerv1.TimerState) string {
	if st == nil {
		return ""
	}
	lines := []string{
		labelStyle.Render("phase:     ") + renderPhase(st.Phase, st.Paused),
	}
	if st.Phase != "idle" {
		lines = append(lines, labelStyle.Render("remaining: ")+formatClock(st.SecondsRemaining))
	}
	if st.Phase == "meditating" && st.Settings != nil {
		lines = append(lines, labelStyle.Render("intervals: ")+
			fmt.Sprintf("%d/%d", st.IntervalsCompleted, st.Settings.NumIntervals))
	}
	if st.SessionStartTime != "" {
		lines = append(lines, labelStyle.Render("started:   ")+st.SessionDate+" "+st.SessionStartTime)
	}
	return strings.Join(lines, "\n")
}

func renderSettings(s *medtimerv1.Settings) string {
	if s == nil {
		return ""
	}
	unit := "min"
	if s.Debug {
		unit = "sec"
	}
	rows := [][2]string{
		{"countdown", fmt.Sprintf("%ds", s.CountdownSeconds)},
		{"interval", fmt.Sprintf("%d %s", s.IntervalUnit, unit)},
		{"intervals", strconv.Itoa(int(s.NumIntervals))},
		{"total", formatClock(s.TotalMeditationSeconds)},
		{"white noise", fmt.Sprintf("%.0f%%", s.WhiteNoiseVolume*100)},
	}
	if s.Debug {
		rows = append(rows, [2]string{"debug", "on"})
	}

	lines := []string{headerStyle.Render("Settings")}
	for _, r := range rows {
		lines = append(lines, labelStyle.Width(13).Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}

func renderEvent(ev *medtimerv1.Event) string {
	seq := dimStyle.Render(fmt.Sprintf("#%-5d", ev.SequenceNo))
	switch ev.Type {
	case medtimerv1.EventTypeTick:
		detail := formatClock(ev.SecondsRemaining)
		if ev.Phase == "meditating" {
			detail += fmt.Sprintf("  intervals %d", ev.IntervalsCompleted)
		}
		return fmt.Sprintf("%s %s %s", seq, labelStyle.Render(ev.Phase), detail)
	default:
		return fmt.Sprintf("%s %s %s", seq, renderPhase(ev.Phase, ev.Paused), formatClock(ev.SecondsRemaining))
	}
}

// renderSessions lays the session log out as an aligned table with totals.
func renderSessions(resp *medtimerv1.ListSessionsResponse) string {
	if len(resp.Sessions) == 0 {
		return dimStyle.Render("No sessions yet.")
	}

	headers := []string{"ID", "DATE", "START", "DURATION"}
	rows := make([][]string, 0, len(resp.Sessions))
	for _, s := range resp.Sessions {
		rows = append(rows, []string{strconv.FormatInt(s.Id, 10), s.Date, s.StartTime, s.FormattedDuration})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	lines := []string{renderRow(headers, headerStyle)}
	for _, row := range rows {
		lines = append(lines, renderRow(row, lipgloss.NewStyle()))
	}

	lines = append(lines, "", dimStyle.Render(fmt.Sprintf("%d sessions, %s in total", resp.Count, formatClock(int32(resp.TotalSeconds)))))
	return strings.Join(lines, "\n")
}
