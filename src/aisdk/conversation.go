package aisdk

// Conversation is the ordered, append-only transcript of one chat session.
//
// It never holds the system prompt; that is added by the generator on every
// request. A Conversation is not safe for concurrent mutation.
type Conversation struct {
	messages []Message
}

// NewConversation returns a conversation seeded with a copy of msgs.
func NewConversation(msgs ...Message) *Conversation {
	c := &Conversation{}
	if len(msgs) > 0 {
		c.messages = make([]Message, len(msgs))
		copy(c.messages, msgs)
	}
	return c
}

// Append adds msg to the end of the conversation.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Snapshot returns the messages in insertion order. The returned slice is a
// copy and may be modified freely.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
