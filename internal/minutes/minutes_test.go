package minutes_test

import (
	"strings"
	"testing"

	"github.com/smallbiznis/mina/internal/minutes"
	"github.com/stretchr/testify/assert"
)

func TestFormatWhatsApp(t *testing.T) {
	out := minutes.FormatWhatsApp(minutes.Minutes{
		Summary:      "Quarterly planning sync.",
		Bullets:      []string{"Budget approved", " Launch moved to June ", ""},
		Participants: []string{"Asha", "Ravi"},
	})

	assert.True(t, strings.HasPrefix(out, "*Summary*\nQuarterly planning sync."))
	assert.Contains(t, out, "*Key Points*\n- Budget approved\n- Launch moved to June")
	assert.Contains(t, out, "*Participants*\nAsha, Ravi")
	assert.NotContains(t, out, "- \n")
}

func TestFormatWhatsAppEmptySections(t *testing.T) {
	out := minutes.FormatWhatsApp(minutes.Minutes{Summary: "Short call."})

	assert.Equal(t, "*Summary*\nShort call.", out)
}

func TestFormatWhatsAppPlaceholderOnEmptySummary(t *testing.T) {
	out := minutes.FormatWhatsApp(minutes.Minutes{})

	assert.Contains(t, out, minutes.Placeholder)
}
