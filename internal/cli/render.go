package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF9AA2"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B5EAD7"))
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	celebrationStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFDAC1"))
)

// RenderToday formats the day view for the terminal.
func RenderToday(view *reminder.TodayView) string {
	var sb strings.Builder

	if view.Day > 0 {
		sb.WriteString(headerStyle.Render(fmt.Sprintf("Dag %d av %d", view.Day, view.TotalDays)))
		sb.WriteString(mutedStyle.Render("  " + view.Date))
	} else {
		sb.WriteString(headerStyle.Render(view.Date))
	}
	sb.WriteString("\n\n")

	if len(view.Doses) == 0 {
		sb.WriteString("Inga aktiva mediciner idag.\n")
	}
	for _, d := range view.Doses {
		check := "▫"
		if d.Taken {
			check = successStyle.Render("✓")
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(d.Color)).Render(d.Name)
		sb.WriteString(fmt.Sprintf("  %s %s %s %s kl %s\n", check, d.Icon, name, d.Dose, d.Time))
	}

	if view.Progress != nil {
		sb.WriteString("\n")
		sb.WriteString(renderProgressBar(view.Progress.Percent))
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d dagar kvar till insättning", view.Progress.DaysLeft)))
		sb.WriteString("\n")
	}

	if view.AllTaken && len(view.Doses) > 0 {
		sb.WriteString("\n")
		sb.WriteString(celebrationStyle.Render("Allt taget idag! 💪"))
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderProgressBar(percent int) string {
	const width = 20
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("  %s %d%%", successStyle.Render(bar), percent)
}
