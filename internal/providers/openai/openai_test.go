package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMinutesPlainJSON(t *testing.T) {
	m, err := decodeMinutes(`{"summary":"Planning call.","bullets":["a"],"participants":["Asha"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Planning call.", m.Summary)
	assert.Equal(t, []string{"a"}, m.Bullets)
	assert.Equal(t, []string{"Asha"}, m.Participants)
}

func TestDecodeMinutesWrappedInProse(t *testing.T) {
	content := "Here are the minutes:\n```json\n{\"summary\":\"Standup.\",\"bullets\":[],\"participants\":[]}\n```"
	m, err := decodeMinutes(content)
	require.NoError(t, err)
	assert.Equal(t, "Standup.", m.Summary)
}

func TestDecodeMinutesNoJSON(t *testing.T) {
	_, err := decodeMinutes("the model refused")
	assert.Error(t, err)
}
