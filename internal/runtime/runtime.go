// Package runtime forwards chat requests to remote agents. Run semantics,
// failure handling and cancellation belong to the agents themselves; the
// runtime only translates requests and relays the response stream.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/auth"
	"github.com/hongminglow/agentauth/internal/models/dto"
)

// ErrUnknownAgent indicates the request named an agent the runtime does not host.
var ErrUnknownAgent = errors.New("unknown agent")

// Agent executes runs and streams AG-UI events back as SSE.
type Agent interface {
	Name() string
	Run(ctx context.Context, input agui.RunAgentInput, token string) (io.ReadCloser, error)
}

// Runtime hosts a fixed set of named agents.
type Runtime struct {
	agents map[string]Agent
}

// New returns a runtime hosting agents, keyed by name.
func New(agents ...Agent) *Runtime {
	r := &Runtime{agents: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.Name()] = a
	}
	return r
}

// Agents lists hosted agent names in sorted order.
func (r *Runtime) Agents() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve finds the agent by name. An empty name selects the only hosted
// agent when there is exactly one.
func (r *Runtime) Resolve(name string) (Agent, error) {
	name = strings.TrimSpace(name)
	if name == "" && len(r.agents) == 1 {
		for _, a := range r.agents {
			return a, nil
		}
	}
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, name)
	}
	return a, nil
}

// Run forwards req to the named agent with token attached and returns the
// agent's event stream. The caller closes the stream.
func (r *Runtime) Run(ctx context.Context, req dto.ChatRequest, token string) (io.ReadCloser, error) {
	a, err := r.Resolve(req.Agent)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, BuildInput(req, token), token)
}

// BuildInput translates a chat request into an agent run input. The token is
// forwarded as the "authorization" property so the agent can read it from its
// own run configuration.
func BuildInput(req dto.ChatRequest, token string) agui.RunAgentInput {
	in := agui.RunAgentInput{
		ThreadID: req.ThreadID,
		RunID:    req.RunID,
		Messages: req.Messages,
		State:    req.State,
		Tools:    req.Tools,
		Context:  req.Context,
	}
	if in.ThreadID == "" {
		in.ThreadID = uuid.NewString()
	}
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	if in.Messages == nil {
		in.Messages = []agui.Message{}
	}
	if in.Tools == nil {
		in.Tools = []agui.Tool{}
	}
	if in.Context == nil {
		in.Context = []agui.Context{}
	}

	props := make(map[string]any, len(req.Properties)+1)
	maps.Copy(props, req.Properties)
	if token != "" {
		props[agui.AuthorizationProp] = token
	} else {
		delete(props, agui.AuthorizationProp)
	}
	in.ForwardedProps = props
	return in
}

// RequestToken picks the caller's token: the "authorization" property when
// set, otherwise the Authorization header. A "Bearer " prefix is dropped.
func RequestToken(req dto.ChatRequest, authorizationHeader string) string {
	if v, ok := req.Properties[agui.AuthorizationProp].(string); ok && strings.TrimSpace(v) != "" {
		return auth.StripBearer(v)
	}
	return auth.StripBearer(authorizationHeader)
}
