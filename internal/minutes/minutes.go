// Package minutes renders meeting minutes for WhatsApp delivery.
package minutes

import (
	"strings"
)

// Minutes is the structured output of the summarizer.
type Minutes struct {
	Summary      string   `json:"summary"`
	Bullets      []string `json:"bullets"`
	Participants []string `json:"participants"`
}

// Placeholder is stored when summarization fails so the transcript still
// marks the item as processed.
const Placeholder = "Summary unavailable. The transcript was saved."

// FormatWhatsApp renders minutes with WhatsApp bold markers.
func FormatWhatsApp(m Minutes) string {
	var b strings.Builder

	b.WriteString("*Summary*\n")
	summary := strings.TrimSpace(m.Summary)
	if summary == "" {
		summary = Placeholder
	}
	b.WriteString(summary)

	if len(m.Bullets) > 0 {
		b.WriteString("\n\n*Key Points*")
		for _, bullet := range m.Bullets {
			bullet = strings.TrimSpace(bullet)
			if bullet == "" {
				continue
			}
			b.WriteString("\n- ")
			b.WriteString(bullet)
		}
	}

	if len(m.Participants) > 0 {
		b.WriteString("\n\n*Participants*\n")
		b.WriteString(strings.Join(m.Participants, ", "))
	}

	return b.String()
}
