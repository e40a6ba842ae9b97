package templates

import (
	"bytes"
	"html/template"
)

type ReminderEmailType string

const (
	ReminderEmailTypeTask         ReminderEmailType = "task"
	ReminderEmailTypeConfirmation ReminderEmailType = "confirmation"
)

type ReminderEmailData struct {
	RecipientName string
	Type          ReminderEmailType
	ActionItem    string
	DueDate       string
	TaskCount     int
	AddedOn       string
	Signature     string
}

const reminderHTML = `
<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8"/>
  <title>Task Reminder</title>
  <style>
    body {
      margin: 0;
      padding: 0;
      font-family: Arial, sans-serif;
      background-color: #f5f5f5;
      color: #333;
    }
    .email-container {
      width: 100%;
      max-width: 600px;
      margin: 0 auto;
      background-color: #ffffff;
      border-radius: 6px;
    }
    .content {
      padding: 20px;
      text-align: left;
    }
    .footer {
      font-size: 12px;
      color: #999;
      padding: 10px 20px;
    }
  </style>
</head>
<body>
  <table class="email-container" role="presentation" cellspacing="0" cellpadding="0">
    <tr>
      <td>
        <div class="content">
          {{if .RecipientName}}
            <p>Hi {{.RecipientName}},</p>
          {{else}}
            <p>Hello,</p>
          {{end}}

          {{if eq .Type "task"}}
            <p>This is a reminder that you are supposed to complete <strong>{{.ActionItem}}</strong> by <strong>{{.DueDate}}</strong>.</p>
          {{end}}

          {{if eq .Type "confirmation"}}
            <p>This is a confirmation that <strong>{{.TaskCount}} tasks</strong> has been successfully added on {{.AddedOn}}.</p>
          {{end}}

          <p>Best regards,<br/>{{.Signature}}</p>
        </div>
        <div class="footer">
          <p>Sent by your CS AI Agent.</p>
        </div>
      </td>
    </tr>
  </table>
</body>
</html>
`

var reminderTmpl = template.Must(template.New("reminder").Parse(reminderHTML))

func RenderReminderHTML(data ReminderEmailData) (string, error) {
	if data.Signature == "" {
		data.Signature = "Your CS AI Agent"
	}
	var buf bytes.Buffer
	if err := reminderTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
