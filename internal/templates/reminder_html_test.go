package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTaskReminder(t *testing.T) {
	out, err := RenderReminderHTML(ReminderEmailData{
		RecipientName: "Sam",
		Type:          ReminderEmailTypeTask,
		ActionItem:    "Send <report>",
		DueDate:       "02/07/2025, 12:00",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hi Sam,")
	assert.Contains(t, out, "Send &lt;report&gt;")
	assert.Contains(t, out, "02/07/2025, 12:00")
	assert.Contains(t, out, "Your CS AI Agent")
	assert.NotContains(t, out, "confirmation that")
}

func TestRenderConfirmation(t *testing.T) {
	out, err := RenderReminderHTML(ReminderEmailData{
		Type:      ReminderEmailTypeConfirmation,
		TaskCount: 3,
		AddedOn:   "02/07/2025, 04:00",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Hello,")
	assert.Contains(t, out, "<strong>3 tasks</strong> has been successfully added on 02/07/2025, 04:00")
}
