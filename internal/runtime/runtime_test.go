package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/models/dto"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func TestBuildInput(t *testing.T) {
	t.Parallel()

	req := dto.ChatRequest{
		ThreadID: "t-1",
		Messages: []agui.Message{{ID: "m1", Role: agui.RoleUser, Content: "hi"}},
		Properties: map[string]any{
			"authorization": "stale",
			"theme":         "dark",
		},
	}
	in := BuildInput(req, "tok")

	assert.Equal(t, "t-1", in.ThreadID)
	assert.NotEmpty(t, in.RunID)
	assert.Equal(t, req.Messages, in.Messages)
	assert.NotNil(t, in.Tools)
	assert.NotNil(t, in.Context)
	assert.Equal(t, "tok", in.Authorization())
	assert.Equal(t, "dark", in.ForwardedProps["theme"])
	assert.Equal(t, "stale", req.Properties["authorization"], "request properties are not mutated")

	anon := BuildInput(dto.ChatRequest{Properties: map[string]any{"authorization": "x"}}, "")
	assert.NotContains(t, anon.ForwardedProps, "authorization")
	assert.NotEmpty(t, anon.ThreadID)
	assert.NotNil(t, anon.Messages)
}

func TestRequestToken(t *testing.T) {
	t.Parallel()

	withProp := dto.ChatRequest{Properties: map[string]any{"authorization": "Bearer prop"}}
	assert.Equal(t, "prop", RequestToken(withProp, "Bearer header"))
	assert.Equal(t, "header", RequestToken(dto.ChatRequest{}, "Bearer header"))
	assert.Equal(t, "header", RequestToken(dto.ChatRequest{Properties: map[string]any{"authorization": nil}}, "header"))
	assert.Empty(t, RequestToken(dto.ChatRequest{}, ""))
}

type stubAgent struct {
	name  string
	input agui.RunAgentInput
	token string
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Run(_ context.Context, input agui.RunAgentInput, token string) (io.ReadCloser, error) {
	s.input = input
	s.token = token
	return io.NopCloser(strings.NewReader("data: {}\n\n")), nil
}

func TestResolve(t *testing.T) {
	t.Parallel()

	single := New(&stubAgent{name: "agent_with_auth"})
	a, err := single.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "agent_with_auth", a.Name())

	_, err = single.Resolve("other")
	assert.ErrorIs(t, err, ErrUnknownAgent)

	multi := New(&stubAgent{name: "b"}, &stubAgent{name: "a"})
	assert.Equal(t, []string{"a", "b"}, multi.Agents())
	_, err = multi.Resolve("")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestRunForwardsToken(t *testing.T) {
	t.Parallel()

	stub := &stubAgent{name: "agent_with_auth"}
	rt := New(stub)

	stream, err := rt.Run(context.Background(), dto.ChatRequest{Agent: "agent_with_auth"}, "tok")
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "tok", stub.token)
	assert.Equal(t, "tok", stub.input.Authorization())
}

func TestHTTPAgentRun(t *testing.T) {
	t.Parallel()

	var gotAuth, gotAccept string
	var gotInput agui.RunAgentInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_ = json.NewDecoder(r.Body).Decode(&gotInput)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"RUN_FINISHED\"}\n\n")
	}))
	defer srv.Close()

	agent := NewHTTPAgent("agent_with_auth", srv.URL, srv.Client())
	assert.Equal(t, srv.URL, agent.URL())

	in := BuildInput(dto.ChatRequest{ThreadID: "t"}, "tok")
	body, err := agent.Run(context.Background(), in, "tok")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	assert.Equal(t, "data: {\"type\":\"RUN_FINISHED\"}\n\n", string(data))
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "text/event-stream", gotAccept)
	assert.Equal(t, "t", gotInput.ThreadID)
	assert.Equal(t, "tok", gotInput.Authorization())
}

func TestHTTPAgentRunWithoutToken(t *testing.T) {
	t.Parallel()

	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	body, err := NewHTTPAgent("a", srv.URL, srv.Client()).Run(context.Background(), BuildInput(dto.ChatRequest{}, ""), "")
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.False(t, sawAuth)
}

func TestHTTPAgentUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPAgent("a", srv.URL, srv.Client()).Run(context.Background(), agui.RunAgentInput{}, "")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusInternalServerError, upstream.StatusCode)
	assert.Equal(t, "agent exploded", upstream.Message)
}
