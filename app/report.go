package app

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gosplit/domain/experiment"
)

// MarkdownReport renders a human-readable summary of an experiment
// result.
func MarkdownReport(exp *experiment.Experiment, result *experiment.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment: %s\n\n", exp.Name)
	if exp.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", exp.Description)
	}
	fmt.Fprintf(&b, "- Status: **%s**\n", result.Status)
	fmt.Fprintf(&b, "- Sample size: %d\n", result.SampleSize)
	fmt.Fprintf(&b, "- Duration: %s\n", result.Duration.Round(0))
	fmt.Fprintf(&b, "- Confidence: %.2f%%\n", result.Confidence*100)
	if result.Significant {
		if winner := result.VariantByID(result.Winner); winner != nil {
			fmt.Fprintf(&b, "- Winner: **%s**\n", winner.Name)
		} else {
			b.WriteString("- Significant, but no variant beats the control\n")
		}
	} else {
		b.WriteString("- No significant difference yet\n")
	}
	b.WriteString("\n## Variants\n\n")
	for _, vr := range result.Variants {
		fmt.Fprintf(&b, "### %s\n\n", vr.Name)
		fmt.Fprintf(&b, "- Participants: %d\n", vr.Participants)
		for _, m := range exp.Metrics {
			agg, ok := vr.Metrics[m.Name]
			if !ok {
				continue
			}
			if m.Type == experiment.MetricConversion {
				fmt.Fprintf(&b, "- %s: %.2f%% conversion (%d events)\n", m.Name, agg.ConversionRate*100, agg.Count)
			} else {
				fmt.Fprintf(&b, "- %s (%s): %.4f over %d events\n", m.Name, m.Aggregation, agg.Value, agg.Count)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTMLReport renders the markdown report to HTML for serving.
func HTMLReport(exp *experiment.Experiment, result *experiment.Result) []byte {
	md := MarkdownReport(exp, result)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(md), p, renderer)
}
