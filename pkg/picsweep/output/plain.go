package output

import (
	"io"
	"strconv"
	"text/tabwriter"
)

// PlainFormatter writes an unstyled, tab-aligned table for scripting.
type PlainFormatter struct{}

// Format implements Formatter.
func (PlainFormatter) Format(w io.Writer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	dims := hasDimensions(r)
	header := "SIZE\tVARIANTS\t"
	if dims {
		header += "DIMS\t"
	}
	if _, err := io.WriteString(tw, header+"PATH\n"); err != nil {
		return err
	}

	for _, it := range r.Items {
		row := it.SizeHuman + "\t" + variantCount(it) + "\t"
		if dims {
			row += orDash(it.Dimensions()) + "\t"
		}
		if _, err := io.WriteString(tw, row+it.Path+"\n"); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func hasDimensions(r *Result) bool {
	for _, it := range r.Items {
		if it.Dimensions() != "" {
			return true
		}
	}
	return false
}

func variantCount(it Item) string {
	if len(it.Variants) == 0 {
		if it.Group == "" {
			return "-"
		}
		return "grouped"
	}
	return strconv.Itoa(len(it.Variants))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	Register("plain", func() Formatter { return PlainFormatter{} })
}
