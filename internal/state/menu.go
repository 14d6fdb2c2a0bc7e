package state

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/waybar-calendar/internal/schedule"
)

type MenuData struct {
	StatusLine string
	Now        time.Time
	Next       *schedule.Occurrence
	Items      []schedule.Occurrence
}

// WriteMenu renders the Waybar GTK dropdown for the upcoming list.
func WriteMenu(path string, data MenuData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create menu dir: %w", err)
	}

	now := data.Now
	if now.IsZero() {
		now = time.Now()
	}

	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<interface>\n")
	b.WriteString("  <object class=\"GtkMenu\" id=\"menu\">\n")

	if data.Next != nil {
		writeMenuItem(&b, "next", fmt.Sprintf("Next: %s", fallback(data.Next.Text, "Event")))
		writeSeparator(&b, "separator_next")
	}

	if len(data.Items) > 0 {
		for idx, item := range data.Items {
			label := fmt.Sprintf("%s — %s", formatStart(now, item), fallback(item.Text, "Event"))
			if item.Calendar.Name != "" {
				label += fmt.Sprintf(" (%s)", item.Calendar.Name)
			}
			writeMenuItem(&b, fmt.Sprintf("item_%d", idx+1), label)
		}
	} else {
		writeMenuItem(&b, "noop", fallback(data.StatusLine, "No upcoming events"))
	}

	writeSeparator(&b, "separator_actions")
	writeMenuItem(&b, "select_calendars", "Select Calendars…")
	writeMenuItem(&b, "refresh", "Refresh")

	b.WriteString("  </object>\n")
	b.WriteString("</interface>\n")

	return writeFileAtomically(path, []byte(b.String()))
}

func writeMenuItem(b *strings.Builder, id, label string) {
	b.WriteString("    <child>\n")
	_, _ = fmt.Fprintf(b, "      <object class=\"GtkMenuItem\" id=\"%s\">\n", html.EscapeString(id))
	_, _ = fmt.Fprintf(b, "        <property name=\"label\">%s</property>\n", html.EscapeString(label))
	b.WriteString("      </object>\n")
	b.WriteString("    </child>\n")
}

func writeSeparator(b *strings.Builder, id string) {
	b.WriteString("    <child>\n")
	_, _ = fmt.Fprintf(b, "      <object class=\"GtkSeparatorMenuItem\" id=\"%s\" />\n", html.EscapeString(id))
	b.WriteString("    </child>\n")
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func formatStart(now time.Time, item schedule.Occurrence) string {
	if item.OccDate == schedule.DateOf(now) {
		return item.Time
	}
	start, err := item.Start(now.Location())
	if err != nil {
		return item.OccDate.Key()
	}
	return start.Format("Mon 15:04")
}
