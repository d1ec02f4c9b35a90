package output

import (
	"encoding/json"
	"io"
)

type summary struct {
	Items       int   `json:"items" yaml:"items"`
	Groups      int   `json:"groups" yaml:"groups"`
	Skipped     int   `json:"skipped" yaml:"skipped"`
	TotalSize   int64 `json:"total_size" yaml:"total_size"`
	Reclaimable int64 `json:"reclaimable,omitempty" yaml:"reclaimable,omitempty"`
}

// document is the shape shared by the json and yaml formats.
type document struct {
	Result  `yaml:",inline"`
	Summary summary `json:"summary" yaml:"summary"`
}

func newDocument(r *Result) document {
	if r.Items == nil {
		r.Items = []Item{}
	}
	return document{
		Result: *r,
		Summary: summary{
			Items:       len(r.Items),
			Groups:      r.Groups,
			Skipped:     len(r.Skipped),
			TotalSize:   r.TotalSize(),
			Reclaimable: r.Reclaimable(),
		},
	}
}

// JSONFormatter writes one indented JSON document.
type JSONFormatter struct{}

// Format implements Formatter.
func (JSONFormatter) Format(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newDocument(r))
}

// JSONLFormatter writes one compact JSON object per item.
type JSONLFormatter struct{}

// Format implements Formatter.
func (JSONLFormatter) Format(w io.Writer, r *Result) error {
	enc := json.NewEncoder(w)
	for _, it := range r.Items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	Register("json", func() Formatter { return JSONFormatter{} })
	Register("jsonl", func() Formatter { return JSONLFormatter{} })
}
