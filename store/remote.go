package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bazelment/agentrelay/message"
)

// Remote is a client for the remote session service. It exposes the
// three operations the service supports: create, full conversation
// replace, and fetch. Conversation replacement is best-effort; the
// caller keeps the local copy authoritative and must not retry.
type Remote struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewRemote creates a Remote client for the given base URL.
func NewRemote(baseURL, token string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RemoteSession is the service's response to a create call.
type RemoteSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type createRequest struct {
	WorkingDirectory string `json:"working_directory"`
}

type replaceConversationRequest struct {
	Messages []message.Message `json:"messages"`
}

// Create registers a new session and returns its service-assigned id.
func (r *Remote) Create(ctx context.Context, workingDirectory string) (*RemoteSession, error) {
	var resp RemoteSession
	err := r.do(ctx, http.MethodPost, "/v1/sessions", createRequest{WorkingDirectory: workingDirectory}, &resp)
	if err != nil {
		return nil, fmt.Errorf("create remote session: %w", err)
	}
	return &resp, nil
}

// ReplaceConversation replaces the full stored conversation for the
// session. This is not incremental: the service keeps only what is sent.
func (r *Remote) ReplaceConversation(ctx context.Context, id string, msgs []message.Message) error {
	if msgs == nil {
		msgs = []message.Message{}
	}
	err := r.do(ctx, http.MethodPut, "/v1/sessions/"+id+"/conversation", replaceConversationRequest{Messages: msgs}, nil)
	if err != nil {
		return fmt.Errorf("replace remote conversation: %w", err)
	}
	return nil
}

// Fetch returns the full record for the session, or ErrNotFound.
func (r *Remote) Fetch(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := r.do(ctx, http.MethodGet, "/v1/sessions/"+id, nil, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// do executes one JSON request against the service.
func (r *Remote) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call session service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: remote", ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("session service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
