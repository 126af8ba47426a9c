package agent

import (
	"fmt"
	"strings"

	"github.com/hongminglow/agentauth/internal/agui"
	"github.com/hongminglow/agentauth/internal/auth"
)

// WeatherTool is only offered to authenticated users.
const WeatherTool = "get_weather"

// ToolCall is a backend tool invocation made while answering.
type ToolCall struct {
	Name     string
	Location string
	Result   string
}

// Configurable merges the run configuration an agent sees: values from
// forwardedProps.config.configurable, then a top-level forwarded
// "authorization" on top.
func Configurable(in agui.RunAgentInput) map[string]any {
	out := make(map[string]any)
	if cfg, ok := in.ForwardedProps["config"].(map[string]any); ok {
		if c, ok := cfg["configurable"].(map[string]any); ok {
			for k, v := range c {
				out[k] = v
			}
		}
	}
	if v, ok := in.ForwardedProps[agui.AuthorizationProp]; ok {
		out[agui.AuthorizationProp] = v
	}
	return out
}

// Authenticate resolves the caller from the run configuration, falling back to
// the request's Authorization header and then to the anonymous identity.
func Authenticate(configurable map[string]any, header string) auth.Identity {
	if v, ok := configurable[agui.AuthorizationProp].(string); ok && v != "" {
		return auth.IdentityFromAuthorization(v)
	}
	return auth.IdentityFromAuthorization(header)
}

// LastUserMessage returns the most recent user message content.
func LastUserMessage(msgs []agui.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == agui.RoleUser {
			return strings.TrimSpace(msgs[i].Content)
		}
	}
	return ""
}

// Answer produces the deterministic reply for text on behalf of id.
func Answer(id auth.Identity, text string) (string, *ToolCall) {
	if wantsWeather(text) {
		if !id.Authenticated() {
			return "The get_weather tool is only available to authenticated users. Please sign in to check the weather.", nil
		}
		loc := weatherLocation(text)
		call := &ToolCall{Name: WeatherTool, Location: loc, Result: getWeather(loc)}
		return fmt.Sprintf("%s, here you go: %s", displayName(id), call.Result), call
	}

	if !id.Authenticated() {
		if text == "" {
			return "Hello! You are not signed in.", nil
		}
		return fmt.Sprintf("Hello! You are not signed in. You said: %q", text), nil
	}
	greeting := fmt.Sprintf("Hello %s (ID: %s, Role: %s).", displayName(id), id.UserID, roleOrDefault(id.Role))
	if text == "" {
		return greeting, nil
	}
	return fmt.Sprintf("%s You said: %q", greeting, text), nil
}

func getWeather(location string) string {
	return fmt.Sprintf("The weather for %s is 70 degrees.", location)
}

func wantsWeather(text string) bool {
	return strings.Contains(strings.ToLower(text), "weather")
}

func weatherLocation(text string) string {
	lower := strings.ToLower(text)
	for _, marker := range []string{"weather in ", "weather for ", "weather at "} {
		if i := strings.Index(lower, marker); i >= 0 {
			loc := strings.Trim(text[i+len(marker):], " ?.!,")
			if loc != "" {
				return loc
			}
		}
	}
	return "your location"
}

func displayName(id auth.Identity) string {
	if id.Name == "" {
		return "Unknown"
	}
	return id.Name
}

func roleOrDefault(role string) string {
	if role == "" {
		return "user"
	}
	return role
}
