// Package taskui is the task list screen of the client: it keeps the last
// loaded list, filters it locally and forwards every change to the API.
package taskui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/client/session"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
)

// ErrAmbiguousID is returned when a short id matches more than one task.
var ErrAmbiguousID = todokit.NewError(todokit.Validation, "More than one task matches that id")

type View struct {
	tasks   taskservice.Service
	session *session.Manager

	list   []tasksvc.Task
	query  string
	banner string
}

func New(tasks taskservice.Service, m *session.Manager) *View {
	return &View{tasks: tasks, session: m}
}

// Load replaces the local list with the server's.
func (v *View) Load(ctx context.Context) error {
	list, err := v.tasks.Tasks(v.session.Context(ctx), v.auth())
	if err != nil {
		return v.fail(err, "Failed to load tasks")
	}
	v.list = list
	v.banner = ""
	return nil
}

// Filter sets the title query and returns the matching tasks.
func (v *View) Filter(query string) []tasksvc.Task {
	v.query = query
	return v.Visible()
}

// Visible returns the tasks whose title contains the query, ignoring case.
func (v *View) Visible() []tasksvc.Task {
	q := strings.ToLower(v.query)
	visible := make([]tasksvc.Task, 0, len(v.list))
	for _, t := range v.list {
		if strings.Contains(strings.ToLower(t.Title), q) {
			visible = append(visible, t)
		}
	}
	return visible
}

func (v *View) Tasks() []tasksvc.Task { return v.list }

// Banner is the message of the last failed action, or "".
func (v *View) Banner() string { return v.banner }

// Add creates a task and puts it at the top, matching the server's newest
// first order.
func (v *View) Add(ctx context.Context, title, description string) (tasksvc.Task, error) {
	t, err := v.tasks.CreateTask(v.session.Context(ctx), v.auth(), title, description)
	if err != nil {
		return tasksvc.Task{}, v.fail(err, "Failed to add task")
	}
	v.list = append([]tasksvc.Task{t}, v.list...)
	v.banner = ""
	return t, nil
}

// Toggle flips the completed flag of the task with the given id.
func (v *View) Toggle(ctx context.Context, id string) (tasksvc.Task, error) {
	i := v.index(id)
	if i < 0 {
		return tasksvc.Task{}, v.fail(tasksvc.ErrTaskNotFound, "")
	}
	completed := !v.list[i].Completed
	return v.Edit(ctx, id, tasksvc.Patch{Completed: &completed})
}

// Edit sends the patch and swaps the returned task into the list.
func (v *View) Edit(ctx context.Context, id string, p tasksvc.Patch) (tasksvc.Task, error) {
	t, err := v.tasks.UpdateTask(v.session.Context(ctx), v.auth(), id, p)
	if err != nil {
		return tasksvc.Task{}, v.fail(err, "Failed to update task")
	}
	if i := v.index(id); i >= 0 {
		v.list[i] = t
	}
	v.banner = ""
	return t, nil
}

func (v *View) Delete(ctx context.Context, id string) error {
	if _, err := v.tasks.DeleteTask(v.session.Context(ctx), v.auth(), id); err != nil {
		return v.fail(err, "Failed to delete task")
	}
	if i := v.index(id); i >= 0 {
		v.list = append(v.list[:i:i], v.list[i+1:]...)
	}
	v.banner = ""
	return nil
}

// Resolve finds the loaded task whose id starts with prefix.
func (v *View) Resolve(prefix string) (tasksvc.Task, error) {
	var (
		found tasksvc.Task
		n     int
	)
	for _, t := range v.list {
		if t.ID == prefix {
			return t, nil
		}
		if prefix != "" && strings.HasPrefix(t.ID, prefix) {
			found = t
			n++
		}
	}
	switch n {
	case 0:
		return tasksvc.Task{}, v.fail(tasksvc.ErrTaskNotFound, "")
	case 1:
		return found, nil
	}
	return tasksvc.Task{}, v.fail(ErrAmbiguousID, "")
}

// Render writes the banner, if any, and the visible tasks as a table.
func (v *View) Render(w io.Writer) error {
	if v.banner != "" {
		fmt.Fprintf(w, "! %s\n\n", v.banner)
	}

	visible := v.Visible()
	fmt.Fprintf(w, "Tasks (%d)\n", len(visible))
	if len(visible) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tDESCRIPTION")
	for _, t := range visible {
		done := "[ ]"
		if t.Completed {
			done = "[x]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, done, t.Title, t.Description)
	}
	return tw.Flush()
}

func (v *View) index(id string) int {
	for i, t := range v.list {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (v *View) auth() tasksvc.Auth {
	return tasksvc.Auth{UserID: v.session.Current().User.ID}
}

// fail records the banner for err and returns err, or ErrLoggedOut once the
// session was dropped. Unclassified failures show fallback instead of their
// text.
func (v *View) fail(err error, fallback string) error {
	err = v.session.Check(err)
	switch {
	case errors.Is(err, session.ErrLoggedOut):
		v.list = nil
		v.banner = err.Error()
	case todokit.KindOf(err) != todokit.Internal || fallback == "":
		v.banner = err.Error()
	default:
		v.banner = fallback
	}
	return err
}
