// Package assistant implements the storefront chat assistant: a canned
// keyword responder, a hosted chat-completion client and the conversation
// that ties either one to the chat panel.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrRetryLater is returned by Conversation.Send when the completer failed.
// The fallback reply has already been appended to the conversation.
var ErrRetryLater = errors.New("assistant: try again later")

const (
	// Greeting opens every conversation.
	Greeting = "Hi! I'm your AI shopping assistant. How can I help you today?"

	// Fallback is the assistant's reply when the completer fails.
	Fallback = "Sorry, something went wrong. Try again later."
)

// Sender identifies who wrote a message.
type Sender string

// Message senders.
const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Message is one chat bubble.
type Message struct {
	Sender Sender    `json:"sender"`
	Text   string    `json:"content"`
	Time   time.Time `json:"timestamp"`
}

// Completer produces the assistant's reply to input given the prior history.
type Completer interface {
	Complete(ctx context.Context, history []Message, input string) (string, error)
}

// Conversation is a chat transcript bound to a completer. It is safe for
// concurrent use; sends are serialized.
type Conversation struct {
	completer Completer
	now       func() time.Time

	mu       sync.Mutex
	messages []Message
}

// ConversationOption configures a Conversation.
type ConversationOption func(*Conversation)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) {
		if now != nil {
			c.now = now
		}
	}
}

// NewConversation starts a conversation with the greeting.
func NewConversation(c Completer, opts ...ConversationOption) *Conversation {
	conv := &Conversation{
		completer: c,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(conv)
	}
	conv.messages = []Message{{Sender: SenderAI, Text: Greeting, Time: conv.now()}}
	return conv
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

// Send appends the user's message and the assistant's reply. Blank input is
// ignored and returns a zero Message.
func (c *Conversation) Send(ctx context.Context, input string) (Message, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Message{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	history := append([]Message(nil), c.messages...)
	c.messages = append(c.messages, Message{Sender: SenderUser, Text: input, Time: c.now()})

	text, err := c.completer.Complete(ctx, history, input)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		reply := Message{Sender: SenderAI, Text: Fallback, Time: c.now()}
		c.messages = append(c.messages, reply)
		return reply, errors.Join(ErrRetryLater, err)
	}

	reply := Message{Sender: SenderAI, Text: strings.TrimSpace(text), Time: c.now()}
	c.messages = append(c.messages, reply)
	return reply, nil
}
