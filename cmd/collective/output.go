package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"snarkcollective/internal/model"
	"snarkcollective/internal/wallet"
)

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(false)
	table.AppendBulk(rows)
	table.Render()
}

// formatCredits renders microcredits as credits with thousands separators.
func formatCredits(micro uint64) string {
	whole := micro / 1_000_000
	frac := micro % 1_000_000
	if frac == 0 {
		return humanize.Comma(int64(whole)) + " credits"
	}
	return fmt.Sprintf("%s.%s credits", humanize.Comma(int64(whole)), strings.TrimRight(fmt.Sprintf("%06d", frac), "0"))
}

func printRound(w io.Writer, r model.Round) {
	state := "inactive"
	if r.IsActive {
		state = "active"
	}
	fmt.Fprintf(w, "Round %d (%s)\n", r.RoundID, state)
	fmt.Fprintf(w, "Submitted projects: %d\n", r.SubmittedProjects)
	fmt.Fprintf(w, "Approved projects:  %d\n", r.ApprovedProjects)
}

func printProjects(w io.Writer, projects []model.Project) {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			fmt.Sprintf("%d", p.Index),
			string(p.Status),
			p.Info.ProjectDetails.Title,
			formatCredits(p.Info.CollectedAmount),
			humanize.Comma(int64(p.Info.NumSupporters)),
			p.ID,
		})
	}
	renderTable(w, []string{"index", "status", "title", "collected", "supporters", "id"}, rows)
}

func printLogs(w io.Writer, entries []wallet.LogEntry) {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		data := ""
		if e.Data != nil {
			data = fmt.Sprintf("%v", e.Data)
		}
		rows = append(rows, []string{e.Timestamp.Format("15:04:05.000"), e.Event, data})
	}
	renderTable(w, []string{"time", "event", "data"}, rows)
}

func printRecords(w io.Writer, records []wallet.Record) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		body := r.Plaintext
		if body == "" {
			body = r.Ciphertext
		}
		rows = append(rows, []string{r.ID, r.ProgramID, r.Name, fmt.Sprintf("%t", r.Spent), body})
	}
	renderTable(w, []string{"id", "program", "name", "spent", "record"}, rows)
}

func printEvents(w io.Writer, events []wallet.TransactionEvent) {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{e.ID, e.Type, e.FunctionID, e.Status, e.TransactionID})
	}
	renderTable(w, []string{"id", "type", "function", "status", "transaction"}, rows)
}
