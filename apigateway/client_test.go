package apigateway

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/client/session"
	"github.com/ichigozero/todokit/client/taskui"
	"github.com/ichigozero/todokit/tasksvc"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientsAgainstServer(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	auth, err := authtransport.NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)
	tasks, err := tasktransport.NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	store := session.NewMemoryStore()
	m := session.NewManager(auth, store)

	_, err = m.Init(ctx)
	assert.Equal(t, session.ErrLoggedOut, err)

	_, err = m.Login(ctx, "ann@x.com", "pw123")
	assert.Equal(t, todokit.Auth, todokit.KindOf(err))
	assert.Equal(t, "Invalid credentials", err.Error())

	s, err := m.Signup(ctx, "Ann", "ann@x.com", "pw123")
	require.NoError(t, err)
	assert.Equal(t, "Ann", s.User.Name)
	assert.NotEmpty(t, s.User.ID)

	_, err = m.Signup(ctx, "Ann", "ann@x.com", "pw123")
	assert.Equal(t, todokit.Validation, todokit.KindOf(err))
	assert.Equal(t, "User already exists", err.Error())

	// A fresh manager over the same store picks the session back up.
	m = session.NewManager(auth, store)
	s, err = m.Init(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", s.User.Email)

	v := taskui.New(tasks, m)
	require.NoError(t, v.Load(ctx))
	assert.Empty(t, v.Tasks())

	_, err = v.Add(ctx, "Buy milk", "2l")
	require.NoError(t, err)
	walk, err := v.Add(ctx, "Walk dog", "")
	require.NoError(t, err)

	_, err = v.Add(ctx, " ", "")
	assert.Equal(t, todokit.Validation, todokit.KindOf(err))
	assert.Equal(t, "Title is required", v.Banner())

	toggled, err := v.Toggle(ctx, walk.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	require.NoError(t, v.Load(ctx))
	require.Len(t, v.Tasks(), 2)
	assert.Equal(t, "Walk dog", v.Tasks()[0].Title)
	assert.True(t, v.Tasks()[0].Completed)

	_, err = v.Edit(ctx, "missing", tasksvc.Patch{})
	assert.Equal(t, todokit.NotFound, todokit.KindOf(err))
	assert.Equal(t, "Task not found", v.Banner())

	require.NoError(t, v.Delete(ctx, walk.ID))
	assert.Len(t, v.Tasks(), 1)

	var buf bytes.Buffer
	require.NoError(t, v.Render(&buf))
	assert.Contains(t, buf.String(), "Tasks (1)")
	assert.Contains(t, buf.String(), "Buy milk")
	assert.NotContains(t, buf.String(), "Walk dog")

	require.NoError(t, m.Logout())
	_, err = store.Load()
	assert.Equal(t, session.ErrNoSession, err)

	err = v.Load(ctx)
	assert.Equal(t, session.ErrLoggedOut, err)
	assert.Empty(t, v.Tasks())
	assert.Equal(t, "Not logged in", v.Banner())
}

func TestClientSessionRejectedToken(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	auth, err := authtransport.NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(session.Session{Token: "forged"}))

	_, err = session.NewManager(auth, store).Init(ctx)
	assert.Equal(t, session.ErrLoggedOut, err)

	_, err = store.Load()
	assert.Equal(t, session.ErrNoSession, err)
}
