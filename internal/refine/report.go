package refine

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormat reports whether f names a report format.
func ValidFormat(f string) bool {
	switch strings.ToLower(f) {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Report is the serializable summary of one run.
type Report struct {
	Region        string `json:"region,omitempty" yaml:"region,omitempty"`
	Edge          string `json:"edge,omitempty" yaml:"edge,omitempty"`
	Output        string `json:"output,omitempty" yaml:"output,omitempty"`
	EdgeOutput    string `json:"edge_output,omitempty" yaml:"edge_output,omitempty"`
	EdgeThreshold int    `json:"edge_threshold" yaml:"edge_threshold"`
	AreaThreshold int    `json:"area_threshold" yaml:"area_threshold"`
	// Converted lists inputs that were reduced from color to luminance.
	Converted []string `json:"converted,omitempty" yaml:"converted,omitempty"`
	Stats     Stats    `json:"stats" yaml:"stats"`
	TotalMs   float64  `json:"total_ms" yaml:"total_ms"`
}

// NewReport builds a report for an in-memory run.
func NewReport(cfg Config, res *Result) Report {
	return Report{
		EdgeThreshold: cfg.EdgeThreshold,
		AreaThreshold: cfg.AreaThreshold,
		Stats:         res.Stats,
		TotalMs:       float64(res.Stats.Total.Microseconds()) / 1000,
	}
}

// NewFileReport builds a report for a file-based run.
func NewFileReport(cfg Config, req FileRequest, res *FileResult) Report {
	r := NewReport(cfg, res.Result)
	r.Region = req.RegionPath
	r.Edge = req.EdgePath
	r.Output = req.OutputPath
	r.EdgeOutput = req.EdgeOutputPath
	if res.Region.Converted {
		r.Converted = append(r.Converted, req.RegionPath)
	}
	if res.Edge.Converted {
		r.Converted = append(r.Converted, req.EdgePath)
	}
	return r
}

// Write renders the report in the given format.
func (r Report) Write(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return r.writeText(w)
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

func (r Report) writeText(w io.Writer) error {
	var sb strings.Builder
	if r.Output != "" {
		fmt.Fprintf(&sb, "Output: %s\n", r.Output)
	}
	if r.EdgeOutput != "" {
		fmt.Fprintf(&sb, "Thinned edge: %s\n", r.EdgeOutput)
	}
	s := r.Stats
	fmt.Fprintf(&sb, "Size: %dx%d\n", s.Width, s.Height)
	fmt.Fprintf(&sb, "Thresholds: edge=%d area=%d\n", r.EdgeThreshold, r.AreaThreshold)
	fmt.Fprintf(&sb, "Region pixels: %d\n", s.RegionPixels)
	fmt.Fprintf(&sb, "Thinned edge pixels: %d\n", s.ThinEdgePixels)
	fmt.Fprintf(&sb, "Recovered boundary pixels: %d\n", s.RecoveredPixels)
	fmt.Fprintf(&sb, "Components: %d examined, %d removed (%d pixels)\n",
		s.Filter.Examined, s.Filter.Removed, s.Filter.RemovedPixels)
	fmt.Fprintf(&sb, "Foreground pixels: %d\n", s.ForegroundPixels)
	for _, c := range r.Converted {
		fmt.Fprintf(&sb, "Warning: %s converted from color\n", c)
	}
	if len(s.Stages) > 0 {
		sb.WriteString("Stages:\n")
		for _, t := range s.Stages {
			fmt.Fprintf(&sb, "  %-10s %8.3f ms\n", t.Stage, t.Millis)
		}
	}
	fmt.Fprintf(&sb, "Total: %.3f ms\n", r.TotalMs)
	_, err := io.WriteString(w, sb.String())
	return err
}
