package services

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderSubject(t *testing.T) {
	long := ReminderSubject("Prepare the quarterly deck")
	assert.Regexp(t, regexp.MustCompile(`^Task Reminder - Prepare th\.\.\. \| [0-9a-f]{4}$`), long)

	short := ReminderSubject("Call Bob")
	assert.Regexp(t, regexp.MustCompile(`^Task Reminder - Call Bob \| [0-9a-f]{4}$`), short)
}

func TestFormatEmailDate(t *testing.T) {
	assert.Equal(t, "02/07/2025, 14:05", FormatEmailDate(time.Date(2025, 2, 7, 14, 5, 0, 0, time.UTC)))
}
