package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"washbay/internal/domain"
	"washbay/internal/services"
	"washbay/internal/theme"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	formatYAML  = "yaml"

	timeLayout = "2006-01-02 15:04:05"
)

// writeStructured prints v as indented JSON or YAML
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidInput, format)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(theme.MutedStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func sessionRow(v services.SessionView) []string {
	box := "-"
	if v.BoxNumber > 0 {
		box = strconv.Itoa(v.BoxNumber)
	}
	queue := "-"
	if v.QueuePosition > 0 {
		queue = strconv.Itoa(v.QueuePosition)
	}
	chemistry := "-"
	if v.Chemistry != nil {
		chemistry = countdown(*v.Chemistry)
	}
	return []string{
		v.ID,
		theme.SessionStatusStyle(domain.SessionStatus(v.Status)).Render(v.Status),
		v.ServiceType,
		box,
		queue,
		countdown(v.Rental),
		chemistry,
		v.CreatedAt.Local().Format(timeLayout),
	}
}

var sessionHeaders = []string{"ID", "STATUS", "SERVICE", "BOX", "QUEUE", "RENTAL", "CHEMISTRY", "CREATED"}

func renderSessions(w io.Writer, views []services.SessionView) {
	t := newTable(sessionHeaders...)
	for _, v := range views {
		t.Row(sessionRow(v)...)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Total: %d sessions\n", len(views))
}

func boxRow(v services.BoxView) []string {
	chemistry := ""
	if v.ChemistryEnabled {
		chemistry = "✓"
	}
	note := v.MaintenanceReason
	switch {
	case v.Cleaning != nil:
		note = "cleaning " + countdown(*v.Cleaning)
	case v.CleaningReservedBy != nil:
		note = "cleaning reserved by " + *v.CleaningReservedBy
	}
	return []string{
		strconv.Itoa(v.Number),
		theme.BoxStatusStyle(domain.BoxStatus(v.Status)).Render(v.Status),
		v.ServiceType,
		chemistry,
		note,
	}
}

func renderBoxes(w io.Writer, views []services.BoxView) {
	t := newTable("BOX", "STATUS", "SERVICE", "CHEM", "NOTE")
	for _, v := range views {
		t.Row(boxRow(v)...)
	}
	fmt.Fprintln(w, t.Render())
}

// countdown renders a timer as mm:ss, styled by urgency
func countdown(c services.CountdownView) string {
	text := fmt.Sprintf("%02d:%02d", c.RemainingSeconds/60, c.RemainingSeconds%60)
	if !c.Running {
		text = fmt.Sprintf("(%02d:%02d)", c.LimitSeconds/60, c.LimitSeconds%60)
		return theme.MutedStyle.Render(text)
	}
	return theme.CountdownStyle(c.RemainingSeconds, c.Expired).Render(text)
}

func renderSessionDetail(w io.Writer, v services.SessionView) {
	fmt.Fprintln(w, theme.TitleStyle.Render("Session "+v.ID))
	fmt.Fprintf(w, "Status:        %s\n", theme.SessionStatusStyle(domain.SessionStatus(v.Status)).Render(v.Status))
	fmt.Fprintf(w, "Service:       %s\n", v.ServiceType)
	if v.CarNumber != "" {
		fmt.Fprintf(w, "Car:           %s\n", v.CarNumber)
	}
	if v.BoxNumber > 0 {
		fmt.Fprintf(w, "Box:           %d\n", v.BoxNumber)
	}
	if v.QueuePosition > 0 {
		fmt.Fprintf(w, "Queue:         #%d\n", v.QueuePosition)
	}
	fmt.Fprintf(w, "Rental:        %s of %d+%d min\n", countdown(v.Rental), v.RentalTimeMinutes, v.ExtensionTimeMinutes)
	if v.Chemistry != nil {
		fmt.Fprintf(w, "Chemistry:     %s (used: %t)\n", countdown(*v.Chemistry), v.WasChemistryOn)
	}
	if v.Assign != nil {
		fmt.Fprintf(w, "Start within:  %s\n", countdown(*v.Assign))
	}
	if v.ReassignCount > 0 {
		fmt.Fprintf(w, "Reassigned:    %d times\n", v.ReassignCount)
	}
	fmt.Fprintf(w, "Created:       %s\n", v.CreatedAt.Local().Format(timeLayout))
	if v.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:      %s\n", v.FinishedAt.Local().Format(timeLayout))
	}
	if v.CanceledBy != "" {
		fmt.Fprintf(w, "Canceled by:   %s\n", v.CanceledBy)
	}
	fmt.Fprintf(w, "Version:       %d\n", v.Version)
}

func renderBoxDetail(w io.Writer, v services.BoxView) {
	fmt.Fprintln(w, theme.TitleStyle.Render(fmt.Sprintf("Box %d", v.Number)))
	fmt.Fprintf(w, "Status:        %s\n", theme.BoxStatusStyle(domain.BoxStatus(v.Status)).Render(v.Status))
	fmt.Fprintf(w, "Service:       %s\n", v.ServiceType)
	fmt.Fprintf(w, "Chemistry:     %t\n", v.ChemistryEnabled)
	if v.OccupiedBy != nil {
		fmt.Fprintf(w, "Occupied by:   %s\n", *v.OccupiedBy)
	}
	if v.MaintenanceReason != "" {
		fmt.Fprintf(w, "Maintenance:   %s\n", v.MaintenanceReason)
	}
	if v.CleaningReservedBy != nil {
		fmt.Fprintf(w, "Cleaner:       %s\n", *v.CleaningReservedBy)
	}
	if v.Cleaning != nil {
		fmt.Fprintf(w, "Cleaning:      %s\n", countdown(*v.Cleaning))
	}
	fmt.Fprintf(w, "Updated:       %s\n", v.UpdatedAt.Local().Format(timeLayout))
	fmt.Fprintf(w, "ID:            %s\n", v.ID)
}

func renderEvents(w io.Writer, events []domain.Event) {
	t := newTable("TIME", "TYPE", "ACTOR", "SESSION", "BOX")
	for _, e := range events {
		t.Row(
			e.CreatedAt.Local().Format(timeLayout),
			string(e.Type),
			e.Actor.String(),
			ptrOr(e.SessionID, "-"),
			ptrOr(e.BoxID, "-"),
		)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Total: %d events\n", len(events))
}

func ptrOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
