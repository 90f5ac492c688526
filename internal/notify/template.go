package notify

import (
	"fmt"
	"html/template"
	"strings"
)

type templateInput struct {
	Title         string
	Preheader     string
	Message       string
	TaskName      string
	ProjectName   string
	WorkspaceName string
	ActorName     string
	PriorityLabel string
	StatusLabel   string
	TaskURL       string // empty hides the button
}

// Auto-escaping via html/template covers every interpolation, so the
// markup can stay inline.
var taskEmailTmpl = template.Must(template.New("task-email").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>{{.Title}}</title>
  </head>
  <body style="margin:0;background:#f5f6f8;color:#111827;">
    <span style="display:none;max-height:0;max-width:0;opacity:0;overflow:hidden;">{{.Preheader}}</span>
    <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="padding:24px 16px;">
      <tr>
        <td align="center">
          <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:640px;background:#ffffff;border-radius:16px;border:1px solid #e5e7eb;">
            <tr>
              <td style="padding:28px 28px 8px 28px;font-family:Arial, sans-serif;">
                <h1 style="margin:0 0 8px 0;font-size:20px;line-height:1.3;">{{.Title}}</h1>
                <p style="margin:0 0 16px 0;font-size:14px;line-height:1.6;color:#4b5563;">{{.Message}}</p>
              </td>
            </tr>
            <tr>
              <td style="padding:0 28px 20px 28px;font-family:Arial, sans-serif;">
                <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="border-collapse:collapse;">
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;width:140px;">Task</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.TaskName}}</td>
                  </tr>
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;">Project</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.ProjectName}}</td>
                  </tr>
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;">Workspace</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.WorkspaceName}}</td>
                  </tr>
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;">Priority</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.PriorityLabel}}</td>
                  </tr>
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;">Status</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.StatusLabel}}</td>
                  </tr>
                  <tr>
                    <td style="padding:8px 0;font-size:13px;color:#6b7280;">Actor</td>
                    <td style="padding:8px 0;font-size:13px;color:#111827;">{{.ActorName}}</td>
                  </tr>
                </table>
              </td>
            </tr>
            {{if .TaskURL}}<tr>
              <td style="padding:0 28px 28px 28px;font-family:Arial, sans-serif;">
                <a href="{{.TaskURL}}" style="display:inline-block;background:#111827;color:#ffffff;text-decoration:none;padding:10px 16px;border-radius:10px;font-size:13px;">
                  View task
                </a>
              </td>
            </tr>{{end}}
          </table>
          <p style="margin:16px 0 0 0;font-size:12px;color:#9ca3af;font-family:Arial, sans-serif;">
            You are receiving this because you enabled email notifications.
          </p>
        </td>
      </tr>
    </table>
  </body>
</html>`))

func renderTaskEmail(in templateInput) (html, text string, err error) {
	var b strings.Builder
	if err := taskEmailTmpl.Execute(&b, in); err != nil {
		return "", "", err
	}

	lines := []string{
		in.Title,
		in.Message,
		"",
		fmt.Sprintf("Task: %s", in.TaskName),
		fmt.Sprintf("Project: %s", in.ProjectName),
		fmt.Sprintf("Workspace: %s", in.WorkspaceName),
		fmt.Sprintf("Priority: %s", in.PriorityLabel),
		fmt.Sprintf("Status: %s", in.StatusLabel),
		fmt.Sprintf("Actor: %s", in.ActorName),
	}
	if in.TaskURL != "" {
		lines = append(lines, "", fmt.Sprintf("Open task: %s", in.TaskURL))
	}
	return b.String(), strings.Join(lines, "\n"), nil
}
