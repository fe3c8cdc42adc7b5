package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kolkov/ksync/sys"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	refuseStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	blockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)

	taskCol = lipgloss.NewStyle().Width(12)
	opCol   = lipgloss.NewStyle().Width(16)
)

// Render formats a scenario report for the terminal.
func Render(r *Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(r.Title) + "\n\n")

	b.WriteString(headerStyle.Render(taskCol.Render("TASK")+opCol.Render("OP")+"RESULT") + "\n")
	for _, e := range r.Events {
		b.WriteString(taskCol.Render(e.Task))
		b.WriteString(opCol.Render(e.Op))
		b.WriteString(renderCode(e.Code))
		b.WriteString("\n")
	}

	if len(r.Blocked) > 0 {
		b.WriteString("\n" + blockedStyle.Render(
			fmt.Sprintf("blocked: %s (watchdog fired: real deadlock or missing wake)",
				strings.Join(r.Blocked, ", "))) + "\n")
	}

	if len(r.Tables) > 0 {
		b.WriteString("\n" + headerStyle.Render(
			taskCol.Render("TASK")+opCol.Render("CLASS")+"NEED / ALLOC / AVAILABLE") + "\n")
		for _, row := range r.Tables {
			b.WriteString(taskCol.Render(row.Task))
			b.WriteString(opCol.Render(row.Class))
			b.WriteString(fmt.Sprintf("%v / %v / %v\n", row.Need, row.Alloc, row.Available))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func renderCode(code int64) string {
	switch code {
	case sys.CodeSuccess:
		return okStyle.Render("ok")
	case sys.CodeWouldDeadlock:
		return refuseStyle.Render("refused: would deadlock")
	case sys.CodeInvalidArgument:
		return refuseStyle.Render("invalid argument")
	default:
		if code >= 0 {
			return okStyle.Render(fmt.Sprintf("id %d", code))
		}
		return refuseStyle.Render(fmt.Sprintf("error %d", code))
	}
}
