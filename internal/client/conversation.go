package client

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/hongminglow/agentauth/internal/agui"
)

// Conversation keeps the thread id and message history across turns.
type Conversation struct {
	client   *Client
	threadID string
	messages []agui.Message
}

// NewConversation starts a fresh thread.
func (c *Client) NewConversation() *Conversation {
	return &Conversation{client: c, threadID: uuid.NewString()}
}

// ThreadID identifies the conversation on the agent side.
func (cv *Conversation) ThreadID() string {
	return cv.threadID
}

// Messages returns a copy of the history.
func (cv *Conversation) Messages() []agui.Message {
	out := make([]agui.Message, len(cv.messages))
	copy(out, cv.messages)
	return out
}

// Say sends text and returns the assistant's reply. onDelta, if set, receives
// reply fragments as they stream in. The turn is only recorded in the history
// when the run succeeds.
func (cv *Conversation) Say(ctx context.Context, text string, onDelta func(string)) (string, error) {
	user := agui.Message{ID: uuid.NewString(), Role: agui.RoleUser, Content: text}
	history := append(cv.Messages(), user)

	var reply strings.Builder
	replyID := ""
	err := cv.client.Send(ctx, cv.threadID, history, func(ev agui.Event) {
		switch ev.Type {
		case agui.EventTextMessageStart:
			if replyID == "" {
				replyID = ev.MessageID
			}
		case agui.EventTextMessageContent:
			reply.WriteString(ev.Delta)
			if onDelta != nil {
				onDelta(ev.Delta)
			}
		}
	})
	if err != nil {
		return "", err
	}
	if replyID == "" {
		replyID = uuid.NewString()
	}
	cv.messages = append(history, agui.Message{ID: replyID, Role: agui.RoleAssistant, Content: reply.String()})
	return reply.String(), nil
}
