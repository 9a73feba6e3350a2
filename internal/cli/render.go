package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/raphaelgruber/medconsult-go/internal/metrics"
	"github.com/raphaelgruber/medconsult-go/internal/models"
)

// shortIDLen is how many trailing id characters are shown to users.
const shortIDLen = 6

// formatMessage renders a message as plain text lines for non-interactive output.
func formatMessage(m models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", m.SenderRole.Label())
	if !m.CreatedAt.IsZero() {
		fmt.Fprintf(&b, " %s", m.CreatedAt.Local().Format("15:04"))
	}
	if m.IsAudio() {
		fmt.Fprintf(&b, " ♪ audio message (%s)", *m.AudioURL)
		if t := m.Translated(); t != "" {
			fmt.Fprintf(&b, "\n  → %s", t)
		}
		return b.String()
	}
	fmt.Fprintf(&b, " %s", m.Original())
	if t := m.Translated(); t != "" {
		fmt.Fprintf(&b, "\n  → %s", t)
	}
	return b.String()
}

// renderBubble renders a message as a styled chat bubble.
func renderBubble(t Theme, m models.Message, width int) string {
	header := t.roleStyle(m.SenderRole).Render(m.SenderRole.Label())
	if !m.CreatedAt.IsZero() {
		header += " " + t.hintStyle().Render(m.CreatedAt.Local().Format("15:04"))
	}

	var body string
	if m.IsAudio() {
		body = "♪ " + m.Original()
		if tr := m.Translated(); tr != "" {
			body += "\n" + t.translatedStyle().Render(tr)
		}
	} else {
		body = m.Original() + "\n" + t.translatedStyle().Render(m.Translated())
	}

	return header + "\n" + t.bubbleStyle(m.SenderRole, width).Render(body)
}

// printConversations writes the history listing as an aligned table.
func printConversations(w io.Writer, convs []models.ConversationSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tLANGUAGES\tLAST MESSAGE")
	for _, c := range convs {
		started := "-"
		if !c.CreatedAt.IsZero() {
			started = c.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		languages := "-"
		if c.DoctorLanguage != "" || c.PatientLanguage != "" {
			languages = c.DoctorLanguage + " ↔ " + c.PatientLanguage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, started, languages, truncateRunes(c.Snippet, 60))
	}
	_ = tw.Flush()
}

// printStats writes per-operation call statistics.
func printStats(w io.Writer, snap metrics.Snapshot) {
	fmt.Fprintf(w, "Session: %.1fs\n", snap.UptimeSeconds)
	if len(snap.Operations) == 0 {
		fmt.Fprintln(w, "No service calls.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OPERATION\tCALLS\tFAILED\tAVG\tMIN\tMAX")
	for _, op := range snap.Operations {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.0fms\t%dms\t%dms\n",
			op.Name, op.Count, op.Failures, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
	}
	_ = tw.Flush()
}

func truncateRunes(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
