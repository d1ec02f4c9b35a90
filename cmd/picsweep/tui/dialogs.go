package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// modeChoices is the order of the mode buttons in the apply dialog.
var modeChoices = []types.Mode{types.ModeBackup, types.ModeDirect, types.ModeTrash}

func modeIndex(mode types.Mode) int {
	for i, m := range modeChoices {
		if m == mode {
			return i
		}
	}
	return 0
}

func modeHint(mode types.Mode, backupDir string) string {
	switch mode {
	case types.ModeDirect:
		return errorTextStyle.Render("Files are deleted permanently.")
	case types.ModeTrash:
		return "Files go to the system trash."
	default:
		return "Files move to " + truncatePath(backupDir, 44)
	}
}

// renderConfirmDialog is the summary and mode picker shown by apply.
func renderConfirmDialog(summary ledger.Summary, cursor int, backupDir string) string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render("Apply decisions"))
	b.WriteString("\n\n")
	b.WriteString(dialogTextStyle.Render(fmt.Sprintf("Keep %d, delete %d.", summary.Keep, summary.Delete)))
	b.WriteString("\n\n")

	buttons := make([]string, 0, len(modeChoices))
	for i, m := range modeChoices {
		style := inactiveButtonStyle
		if i == cursor {
			style = activeButtonStyle
			if m == types.ModeDirect {
				style = style.Background(dangerColor)
			}
		}
		buttons = append(buttons, style.Render(m.String()))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, buttons...))
	b.WriteString("\n\n")
	b.WriteString(modeHint(modeChoices[cursor], backupDir))
	b.WriteString("\n\n")
	b.WriteString(keyStyle.Render("[Enter]") + " " + keyDescStyle.Render("apply") + "  ")
	b.WriteString(keyStyle.Render("[←/→]") + " " + keyDescStyle.Render("mode") + "  ")
	b.WriteString(keyStyle.Render("[Esc]") + " " + keyDescStyle.Render("cancel"))

	return dialogBoxStyle.Render(b.String())
}

// renderWarningDialog is the data-loss notice shown on start.
func renderWarningDialog(dontShow bool) string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render("Before you start"))
	b.WriteString("\n\n")
	b.WriteString(dialogTextStyle.Render(
		"picsweep removes files from the folder you review. Decisions are only " +
			"staged until you press a and confirm. Backup mode moves files into a " +
			"sibling folder so they can be restored. Direct mode cannot be undone."))
	b.WriteString("\n\n")

	box := "[ ]"
	if dontShow {
		box = "[x]"
	}
	b.WriteString(box + " Don't show this again")
	b.WriteString("\n\n")
	b.WriteString(keyStyle.Render("[Space]") + " " + keyDescStyle.Render("toggle") + "  ")
	b.WriteString(keyStyle.Render("[Enter]") + " " + keyDescStyle.Render("continue"))

	return dialogBoxStyle.Render(b.String())
}

// renderOpenDialog wraps the folder prompt.
func renderOpenDialog(input string) string {
	var b strings.Builder
	b.WriteString(dialogTitleStyle.Render("Open folder"))
	b.WriteString("\n\n")
	b.WriteString(input)
	b.WriteString("\n\n")
	b.WriteString(keyStyle.Render("[Enter]") + " " + keyDescStyle.Render("open") + "  ")
	b.WriteString(keyStyle.Render("[Esc]") + " " + keyDescStyle.Render("cancel"))
	return dialogBoxStyle.BorderForeground(primaryColor).Render(b.String())
}

// overlay places dialog centered over a width x height screen.
func overlay(width, height int, dialog string) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, dialog)
}
