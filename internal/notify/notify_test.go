package notify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"taskdeck/internal/mailqueue"
)

func boolPtr(v bool) *bool { return &v }

func testStore(t *testing.T) mailqueue.Store {
	t.Helper()
	st, err := mailqueue.Open(mailqueue.StoreConfig{
		Path: filepath.Join(t.TempDir(), "queue.db"),
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestNotifyEnqueuesPerRecipient(t *testing.T) {
	t.Parallel()
	st := testStore(t)
	n := NewNotifier(st, "https://deck.example.com/", zerolog.Nop())

	err := n.Notify(context.Background(), Notification{
		Type: TaskCreated,
		Task: Task{
			ID:          "t1",
			Name:        "Ship the report",
			Status:      StatusTodo,
			Priority:    PriorityHigh,
			WorkspaceID: "w1",
		},
		ProjectName:   "Q2 Reports",
		WorkspaceName: "Acme",
		Actor:         ActorInfo{Name: "Dana", Email: "dana@example.com"},
		Recipients: []Recipient{
			{ID: "u1", Email: "a@example.com"},
			{ID: "u2", Email: "b@example.com", EmailNotificationsEnabled: boolPtr(true)},
			{ID: "u3", Email: "optout@example.com", EmailNotificationsEnabled: boolPtr(false)},
		},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	counts, err := st.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[mailqueue.StatusPending] != 2 {
		t.Fatalf("enqueued %d items, want 2 (opted-out recipient skipped)", counts[mailqueue.StatusPending])
	}

	items, err := st.SelectBatch(context.Background(), 10, 5)
	if err != nil {
		t.Fatalf("SelectBatch: %v", err)
	}
	for _, item := range items {
		if item.Subject != "New task: Ship the report" {
			t.Fatalf("subject = %q", item.Subject)
		}
		if !strings.Contains(item.HTMLBody, "https://deck.example.com/workspaces/w1/tasks/t1") {
			t.Fatal("html body missing task url")
		}
		if !strings.Contains(item.TextBody, "Priority: High") {
			t.Fatalf("text body missing priority label:\n%s", item.TextBody)
		}
	}
}

func TestNotifyEscalationSubject(t *testing.T) {
	t.Parallel()
	st := testStore(t)
	n := NewNotifier(st, "", zerolog.Nop())

	err := n.Notify(context.Background(), Notification{
		Type:          TaskPriorityEscalated,
		Task:          Task{ID: "t2", Name: "Hotfix", Status: StatusInProgress, Priority: PriorityRealTime, WorkspaceID: "w1"},
		WorkspaceName: "Acme",
		Actor:         ActorInfo{Email: "ops@example.com"},
		Recipients:    []Recipient{{ID: "u1", Email: "a@example.com"}},
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	items, err := st.SelectBatch(context.Background(), 1, 5)
	if err != nil || len(items) != 1 {
		t.Fatalf("SelectBatch: items=%d err=%v", len(items), err)
	}
	if items[0].Subject != "Priority Real time: Hotfix" {
		t.Fatalf("subject = %q", items[0].Subject)
	}
	// No site URL configured: no deep link anywhere.
	if strings.Contains(items[0].TextBody, "Open task:") {
		t.Fatal("text body has a task url without site_url configured")
	}
	// Project falls back to the workspace label.
	if !strings.Contains(items[0].TextBody, "Project: Workspace") {
		t.Fatalf("text body missing project fallback:\n%s", items[0].TextBody)
	}
}

func TestRenderEscapesHTML(t *testing.T) {
	t.Parallel()
	html, text, err := renderTaskEmail(templateInput{
		Title:    "New task: <script>alert(1)</script>",
		TaskName: "a & b",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("html body not escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatal("expected escaped title in html")
	}
	// Plain text keeps the raw values.
	if !strings.Contains(text, "<script>") || !strings.Contains(text, "a & b") {
		t.Fatal("text body should not be html-escaped")
	}
}

func TestTaskURL(t *testing.T) {
	t.Parallel()
	if got := TaskURL("https://x.dev/", "w", "t"); got != "https://x.dev/workspaces/w/tasks/t" {
		t.Fatalf("TaskURL = %q", got)
	}
	if got := TaskURL("", "w", "t"); got != "" {
		t.Fatalf("TaskURL = %q, want empty", got)
	}
}
