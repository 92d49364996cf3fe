package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	name   string
	err    error
	titles []string
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFansOut(t *testing.T) {
	a := &fakeSender{name: "a"}
	b := &fakeSender{name: "b"}
	n := New([]Sender{a, b}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventRebuild, "done", "12 pairs"))
	assert.Equal(t, []string{"done"}, a.titles)
	assert.Equal(t, []string{"done"}, b.titles)
}

func TestNotifyEventFilter(t *testing.T) {
	s := &fakeSender{name: "a"}
	n := New([]Sender{s}, []string{EventOrderFailed}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventRebuild, "ignored", ""))
	assert.Empty(t, s.titles)

	require.NoError(t, n.Notify(context.Background(), EventOrderFailed, "delivered", ""))
	assert.Equal(t, []string{"delivered"}, s.titles)
}

func TestNotifyCollectsSenderErrors(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("timeout")}
	good := &fakeSender{name: "good"}
	n := New([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), EventSeedComplete, "run", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 sender(s) failed")
	assert.Contains(t, err.Error(), "bad: timeout")
	// A failing sender must not block the others.
	assert.Equal(t, []string{"run"}, good.titles)
}

func TestNotifyNoSenders(t *testing.T) {
	n := New(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventRebuild, "t", "m"))
}

func TestDiscordSenderPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Seeding run", "4 submitted"))
	assert.Contains(t, got["content"], "Seeding run")
	assert.Contains(t, got["content"], "4 submitted")
}
