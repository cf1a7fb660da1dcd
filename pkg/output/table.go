package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/icpep-se/certmailer/pkg/batch"
)

// WriteSummaryTable prints per-recipient results plus a totals line.
func WriteSummaryTable(w io.Writer, summary *batch.Summary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EMAIL\tNAME\tSTATUS\tATTACHED\tERROR")
	for _, r := range summary.Results {
		status := "failed"
		switch {
		case r.Sent:
			status = "sent"
		case r.Skipped:
			status = "skipped"
		}
		attached := "-"
		if r.Attached {
			attached = "yes"
		}
		errMsg := "-"
		if r.Error != "" {
			errMsg = r.Error
		}
		name := r.Name
		if name == "" {
			name = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Email, name, status, attached, errMsg)
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(w, "\n%d sent, %d failed, %d skipped\n", summary.Sent, summary.Failed, summary.Skipped)
}
