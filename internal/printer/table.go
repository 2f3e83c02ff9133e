package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/slok/cupload/internal/model"
)

// TablePrinter prints upload information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintBatch prints the tasks and the batch counters.
func (t *TablePrinter) PrintBatch(b model.Batch) error {
	if len(b.Tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tFILE\tSIZE\tSTATUS\tPROGRESS\tSTAGE\tERROR")
	for _, task := range b.Tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%3.0f%%\t%s\t%s\n",
			task.ID,
			task.Source.Name,
			FormatBytes(task.Source.Size),
			task.Status,
			task.Progress,
			StageLabel(task),
			task.Error,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	c := b.Counts
	fmt.Fprintf(t.writer, "\n%d tasks: %d succeeded, %d failed, %d in progress, %d queued\n",
		c.Total(), c.Succeeded, c.Failed, c.InProgress, c.Queued)

	return nil
}

// PrintRejections prints the files refused at submission.
func (t *TablePrinter) PrintRejections(rejections []model.Rejection) error {
	if len(rejections) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "REJECTED FILE\tSIZE\tTYPE\tREASON")
	for _, r := range rejections {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.File.Name, FormatBytes(r.File.Size), r.File.ContentType, r.Reason)
	}

	return nil
}

// PrintHistory prints the recorded upload outcomes.
func (t *TablePrinter) PrintHistory(notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "TASK\tBATCH\tFILE\tOUTCOME\tAT\tREASON")
	for _, n := range notifications {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", n.TaskID, n.BatchID, n.DisplayName, n.Outcome, FormatTimestamp(n.At), n.Reason)
	}

	return nil
}

// PrintPolicy prints a validation policy.
func (t *TablePrinter) PrintPolicy(p model.ValidationPolicy) error {
	fmt.Fprintf(t.writer, "Accepted types:  %s\n", strings.Join(p.AcceptedTypes, ", "))
	fmt.Fprintf(t.writer, "Max size:        %s (%d bytes)\n", FormatBytes(p.MaxSizeBytes), p.MaxSizeBytes)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
