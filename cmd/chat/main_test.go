package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/agentauth/internal/agent"
	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/config"
	"github.com/hongminglow/agentauth/internal/logging"
	"github.com/hongminglow/agentauth/internal/models/dto"
	"github.com/hongminglow/agentauth/internal/runtime"
	"github.com/hongminglow/agentauth/internal/server"
	"github.com/hongminglow/agentauth/internal/users"
)

func testConfig(t *testing.T) config.ChatConfig {
	t.Helper()
	return config.ChatConfig{
		ServerURL: "http://localhost:8080",
		AgentName: "agent_with_auth",
		Endpoint:  "/api/copilotkit",
		Store:     "file",
		StoreFile: filepath.Join(t.TempDir(), "session.yaml"),
		Namespace: "default",
		LogLevel:  "error",
	}
}

// withForwarder points cfg at a running demo agent behind the forwarder.
func withForwarder(t *testing.T, cfg config.ChatConfig) config.ChatConfig {
	t.Helper()
	mux := http.NewServeMux()
	agent.NewHandler(cfg.AgentName, logging.Nop()).Register(mux)
	agentSrv := httptest.NewServer(mux)
	t.Cleanup(agentSrv.Close)

	srvCfg := config.Config{AgentName: cfg.AgentName, AgentURL: agentSrv.URL, Endpoint: cfg.Endpoint, CORSOrigins: []string{"*"}}
	rt := runtime.New(runtime.NewHTTPAgent(srvCfg.AgentName, srvCfg.AgentURL, agentSrv.Client()))
	fwd := httptest.NewServer(server.Handler(srvCfg, rt, logging.Nop()))
	t.Cleanup(fwd.Close)

	cfg.ServerURL = fwd.URL
	return cfg
}

func execute(t *testing.T, cfg config.ChatConfig, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(cfg)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func whoami(t *testing.T, cfg config.ChatConfig) dto.SessionResponse {
	t.Helper()
	out, err := execute(t, cfg, "", "whoami")
	require.NoError(t, err)
	var resp dto.SessionResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	assert.False(t, whoami(t, cfg).LoggedIn)

	out, err := execute(t, cfg, "", "login", "user-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Jane Smith (user)")

	resp := whoami(t, cfg)
	require.True(t, resp.LoggedIn)
	require.NotNil(t, resp.User)
	assert.Equal(t, "user-2", resp.User.ID)
	id, err := auth.DecodeToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "jane.smith@example.com", id.Email)

	out, err = execute(t, cfg, "", "users")
	require.NoError(t, err)
	assert.Contains(t, out, "* user-2")

	out, err = execute(t, cfg, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")
	assert.False(t, whoami(t, cfg).LoggedIn)
}

func TestLoginUnknownUser(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	_, err := execute(t, cfg, "", "login", "user-1")
	require.NoError(t, err)

	_, err = execute(t, cfg, "", "login", "user-99")
	assert.ErrorIs(t, err, users.ErrNotFound)

	resp := whoami(t, cfg)
	require.True(t, resp.LoggedIn)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestToken(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)

	_, err := execute(t, cfg, "", "token")
	assert.ErrorIs(t, err, errNotLoggedIn)

	_, err = execute(t, cfg, "", "login", "user-3")
	require.NoError(t, err)

	out, err := execute(t, cfg, "", "token")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "."+auth.PlaceholderSignature))

	out, err = execute(t, cfg, "", "token", "--decode")
	require.NoError(t, err)
	var id auth.Identity
	require.NoError(t, json.Unmarshal([]byte(out), &id))
	assert.Equal(t, auth.Identity{UserID: "user-3", Name: "Bob Johnson", Email: "bob.johnson@example.com", Role: "user"}, id)
}

func TestSendThroughForwarder(t *testing.T) {
	t.Parallel()
	cfg := withForwarder(t, testConfig(t))

	out, err := execute(t, cfg, "", "send", "hi", "there")
	require.NoError(t, err)
	assert.Equal(t, "Hello! You are not signed in. You said: \"hi there\"\n", out)

	_, err = execute(t, cfg, "", "login", "user-1")
	require.NoError(t, err)

	out, err = execute(t, cfg, "", "send", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello John Doe (ID: user-1, Role: admin)")
}

func TestSendWithoutForwarder(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg.ServerURL = srv.URL
	srv.Close()

	_, err := execute(t, cfg, "", "send", "hi")
	assert.Error(t, err)
}

func TestChatLineMode(t *testing.T) {
	t.Parallel()
	cfg := withForwarder(t, testConfig(t))

	script := strings.Join([]string{
		"/whoami",
		"/login user-3",
		"weather in Oslo",
		"/login nobody",
		"/logout",
		"/whoami",
		"/quit",
		"never sent",
	}, "\n")
	out, err := execute(t, cfg, script, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "as Not logged in")
	assert.Contains(t, out, "Logged in as Bob Johnson (user)")
	assert.Contains(t, out, "agent: Bob Johnson, here you go: The weather for Oslo is 70 degrees.")
	assert.Contains(t, out, `error: login "nobody"`)
	assert.Contains(t, out, "Logged out")
	assert.NotContains(t, out, "never sent")
	assert.Equal(t, 2, strings.Count(out, "\nNot logged in\n"))
}

func TestMemoryStoreForgetsBetweenRuns(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Store = "memory"

	_, err := execute(t, cfg, "", "login", "user-1")
	require.NoError(t, err)
	assert.False(t, whoami(t, cfg).LoggedIn)
}
