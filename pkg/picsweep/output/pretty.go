package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter writes a styled listing for terminals.
type PrettyFormatter struct{}

// Format implements Formatter.
func (f PrettyFormatter) Format(w io.Writer, r *Result) error {
	var sb strings.Builder

	sb.WriteString(f.header(r))
	sb.WriteString("\n")
	sb.WriteString(f.table(r))
	sb.WriteString(f.footer(r))
	sb.WriteString("\n")

	if len(r.Skipped) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render("Skipped:"))
		sb.WriteString("\n")
		for _, s := range r.Skipped {
			sb.WriteString(WarningStyle.Render(fmt.Sprintf("  %s: %s", s.Filename, s.Error)))
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString(WarningStyle.Bold(true).Render("Warnings:"))
		sb.WriteString("\n")
		for _, msg := range r.Warnings {
			sb.WriteString(WarningStyle.Render("  " + msg))
			sb.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f PrettyFormatter) header(r *Result) string {
	lines := []string{
		LabelStyle.Render("Folder:") + " " + ValueStyle.Render(r.Folder),
	}

	info := fmt.Sprintf("%d images, %d groups", len(r.Items), r.Groups)
	if r.Duration > 0 {
		info += " in " + formatDuration(r.Duration.Seconds())
	}
	lines = append(lines, LabelStyle.Render("Scanned:")+" "+ValueStyle.Render(info))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f PrettyFormatter) table(r *Result) string {
	if len(r.Items) == 0 {
		return MutedStyle.Render("  No images found") + "\n"
	}

	width := 8
	for _, it := range r.Items {
		if len(it.SizeHuman) > width {
			width = len(it.SizeHuman)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("  %s  %s\n",
		TableHeaderStyle.Render(padLeft("SIZE", width)),
		TableHeaderStyle.Render("PATH")))

	for _, it := range r.Items {
		line := fmt.Sprintf("  %s  %s", SizeStyle.Render(padLeft(it.SizeHuman, width)), PathStyle.Render(it.Name))
		if d := it.Dimensions(); d != "" {
			line += " " + MutedStyle.Render(d)
		}
		sb.WriteString(line + "\n")

		for _, v := range it.Variants {
			mark, style := "x", DeleteStyle
			if v.Survivor {
				mark, style = "*", SuccessStyle
			}
			sb.WriteString(fmt.Sprintf("  %s    %s %s\n",
				strings.Repeat(" ", width),
				style.Render(mark+" "+v.Tag),
				MutedStyle.Render(v.SizeHuman)))
		}
	}

	return sb.String()
}

func (f PrettyFormatter) footer(r *Result) string {
	parts := []string{
		LabelStyle.Render("Images:") + " " + ValueStyle.Render(fmt.Sprintf("%d", len(r.Items))),
		LabelStyle.Render("Total:") + " " + SizeStyle.Render(humanize.IBytes(uint64(r.TotalSize()))),
	}
	if rec := r.Reclaimable(); rec > 0 {
		parts = append(parts, LabelStyle.Render("Reclaimable:")+" "+DeleteStyle.Render(humanize.IBytes(uint64(rec))))
	}
	parts = append(parts, MutedStyle.Render("Use -o plain for unformatted output"))

	return FooterBox.Render(strings.Join(parts, "  "))
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

func formatDuration(sec float64) string {
	switch {
	case sec < 1:
		return fmt.Sprintf("%.0fms", sec*1000)
	case sec < 60:
		return fmt.Sprintf("%.1fs", sec)
	default:
		return fmt.Sprintf("%dm %ds", int(sec)/60, int(sec)%60)
	}
}

func init() {
	Register("pretty", func() Formatter { return PrettyFormatter{} })
}
