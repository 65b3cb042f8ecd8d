package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText prints a plan for terminals.
func WriteText(w io.Writer, plan Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "wavKey:\t%s\n", plan.WavKey)
	fmt.Fprintf(tw, "scaleType:\t%s\n\n", plan.ScaleType)

	fmt.Fprintln(tw, "[피치별 분석]")
	if plan.PitchGroups.Placeholder != "" {
		fmt.Fprintln(tw, plan.PitchGroups.Placeholder)
	}
	for _, group := range plan.PitchGroups.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", group.Title, group.TimeRange, strings.Join(group.Attributes, " / "))
		if group.Feedback != "" {
			fmt.Fprintf(tw, "\t%s\n", group.Feedback)
		}
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "[통합 세그먼트]")
	if plan.ConsolidatedSegments.Placeholder != "" {
		fmt.Fprintln(tw, plan.ConsolidatedSegments.Placeholder)
	}
	for _, group := range plan.ConsolidatedSegments.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", group.Header, joinDetails(group.Details), group.Meta)
		if group.Feedback != "" {
			fmt.Fprintf(tw, "\t%s\n", group.Feedback)
		}
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "[세그먼트]")
	if plan.Segments.Placeholder != "" {
		fmt.Fprintln(tw, plan.Segments.Placeholder)
	}
	for _, seg := range plan.Segments.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", seg.Header, seg.TimeRange, joinDetails(seg.Details))
	}

	return tw.Flush()
}

func joinDetails(details []Detail) string {
	parts := make([]string, 0, len(details))
	for _, d := range details {
		parts = append(parts, d.Label+"="+d.Value)
	}
	return strings.Join(parts, " ")
}
