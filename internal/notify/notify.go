// Package notify composes task notification emails and feeds them into
// the mail queue. It is a producer only: delivery guarantees come from
// the queue, not from this package.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"taskdeck/internal/mailqueue"
)

type EventType string

const (
	TaskCreated           EventType = "TASK_CREATED"
	TaskPriorityEscalated EventType = "TASK_PRIORITY_ESCALATED"
)

type Priority string

const (
	PriorityVeryLow  Priority = "VERY_LOW"
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityRealTime Priority = "REAL_TIME"
)

type TaskStatus string

const (
	StatusBacklog    TaskStatus = "BACKLOG"
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
)

var priorityLabels = map[Priority]string{
	PriorityVeryLow:  "Very low",
	PriorityLow:      "Low",
	PriorityMedium:   "Medium",
	PriorityHigh:     "High",
	PriorityRealTime: "Real time",
}

var statusLabels = map[TaskStatus]string{
	StatusBacklog:    "Backlog",
	StatusTodo:       "Todo",
	StatusInProgress: "In progress",
	StatusInReview:   "In review",
	StatusDone:       "Done",
}

// PriorityLabel returns the human label, falling back to the raw value
// for priorities introduced after this build.
func PriorityLabel(p Priority) string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

func StatusLabel(s TaskStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Task struct {
	ID          string
	Name        string
	Status      TaskStatus
	Priority    Priority
	WorkspaceID string
}

type Recipient struct {
	ID    string
	Name  string
	Email string
	// EmailNotificationsEnabled nil means "not set", which counts as
	// enabled; only an explicit false opts the recipient out.
	EmailNotificationsEnabled *bool
}

type ActorInfo struct {
	Name  string
	Email string
}

type Notification struct {
	Type          EventType
	Task          Task
	ProjectName   string // empty means no project
	WorkspaceName string
	Actor         ActorInfo
	Recipients    []Recipient
}

// TaskURL builds the deep link into the web UI, or "" when no site URL
// is configured.
func TaskURL(siteURL, workspaceID, taskID string) string {
	if siteURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/workspaces/%s/tasks/%s", strings.TrimRight(siteURL, "/"), workspaceID, taskID)
}

// Notifier enqueues one queue item per eligible recipient.
type Notifier struct {
	store   mailqueue.Store
	siteURL string
	log     zerolog.Logger
}

func NewNotifier(store mailqueue.Store, siteURL string, log zerolog.Logger) *Notifier {
	return &Notifier{store: store, siteURL: siteURL, log: log}
}

// Notify renders the notification and enqueues it for every recipient
// that has not opted out. No synchronous delivery guarantee is made;
// failures are per-recipient and joined.
func (n *Notifier) Notify(ctx context.Context, in Notification) error {
	recipients := in.Recipients[:0:0]
	for _, r := range in.Recipients {
		if r.EmailNotificationsEnabled != nil && !*r.EmailNotificationsEnabled {
			continue
		}
		recipients = append(recipients, r)
	}
	if len(recipients) == 0 {
		return nil
	}

	actorName := in.Actor.Name
	if actorName == "" {
		actorName = in.Actor.Email
	}
	projectName := in.ProjectName
	if projectName == "" {
		projectName = "Workspace"
	}
	priorityLabel := PriorityLabel(in.Task.Priority)

	var subject, message string
	switch in.Type {
	case TaskPriorityEscalated:
		subject = fmt.Sprintf("Priority %s: %s", priorityLabel, in.Task.Name)
		message = fmt.Sprintf("Priority was updated to %s.", priorityLabel)
	default:
		subject = fmt.Sprintf("New task: %s", in.Task.Name)
		message = fmt.Sprintf("A new task was created in %s.", projectName)
	}

	html, text, err := renderTaskEmail(templateInput{
		Title:         subject,
		Preheader:     message,
		Message:       message,
		TaskName:      in.Task.Name,
		ProjectName:   projectName,
		WorkspaceName: in.WorkspaceName,
		ActorName:     actorName,
		PriorityLabel: priorityLabel,
		StatusLabel:   StatusLabel(in.Task.Status),
		TaskURL:       TaskURL(n.siteURL, in.Task.WorkspaceID, in.Task.ID),
	})
	if err != nil {
		return fmt.Errorf("notify: render: %w", err)
	}

	var errs []error
	for _, r := range recipients {
		_, err := n.store.Enqueue(ctx, mailqueue.EnqueueInput{
			UserID:    r.ID,
			Recipient: r.Email,
			Subject:   subject,
			HTMLBody:  html,
			TextBody:  text,
		})
		if err != nil {
			n.log.Warn().Err(err).Str("recipient", r.Email).Msg("notification enqueue failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
