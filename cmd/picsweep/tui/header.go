package tui

import (
	"fmt"

	"github.com/jamesainslie/picsweep/pkg/picsweep/ledger"
	"github.com/jamesainslie/picsweep/pkg/picsweep/types"
)

// renderAppHeader renders the title line: position in the list, pending
// decisions, commit mode, and whether the folder is watched.
func renderAppHeader(index, count int, pending ledger.Summary, mode types.Mode, live, stale bool) string {
	header := " " + titleStyle.Render("PICSWEEP")

	if count > 0 {
		header += mutedTextStyle.Render(fmt.Sprintf("  %d / %d", index+1, count))
	} else {
		header += mutedTextStyle.Render("  no images")
	}

	header += mutedTextStyle.Render(fmt.Sprintf("  •  keep %d  delete %d  •  %s", pending.Keep, pending.Delete, mode))

	switch {
	case stale:
		header += warningTextStyle.Render("  ● CHANGED")
	case live:
		header += successTextStyle.Render("  ● LIVE")
	}

	return header
}
