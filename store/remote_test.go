package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazelment/agentrelay/message"
)

func TestRemote_Create(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req struct {
			WorkingDirectory string `json:"working_directory"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/tmp/work", req.WorkingDirectory)

		json.NewEncoder(w).Encode(RemoteSession{ID: "srv-1", CreatedAt: time.Now()})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "secret")
	sess, err := r.Create(context.Background(), "/tmp/work")
	require.NoError(t, err)
	assert.Equal(t, "srv-1", sess.ID)
}

func TestRemote_ReplaceConversation(t *testing.T) {
	var got struct {
		Messages []message.Message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/sessions/srv-1/conversation", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "")
	msgs := []message.Message{message.NewUserText("hi")}
	require.NoError(t, r.ReplaceConversation(context.Background(), "srv-1", msgs))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Text())
}

func TestRemote_ReplaceConversationNilBecomesEmptyList(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		body = string(raw["messages"])
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "")
	require.NoError(t, r.ReplaceConversation(context.Background(), "srv-1", nil))
	assert.Equal(t, "[]", body)
}

func TestRemote_FetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "")
	_, err := r.Fetch(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemote_ServerErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "")
	_, err := r.Fetch(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "quota exceeded")
}
