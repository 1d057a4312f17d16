package core

// Conversation is the ordered, append-only transcript of a single agent run.
//
// It is created with the system instructions and the initial user message and
// afterwards only grows through Append. Role ordering is the caller's concern.
// A Conversation is owned by exactly one run and is not safe for concurrent use.
type Conversation struct {
	messages []Message
}

// NewConversation starts a transcript with a system message and the user's message.
func NewConversation(system, user string) *Conversation {
	return &Conversation{
		messages: []Message{SystemMessage(system), UserMessage(user)},
	}
}

// Append adds a message to the end of the transcript.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, CloneMessage(m))
}

// Snapshot returns a copy of the full transcript in order.
func (c *Conversation) Snapshot() []Message {
	return CloneMessages(c.messages)
}

// Len returns the number of messages in the transcript.
func (c *Conversation) Len() int { return len(c.messages) }

// Last returns the most recently appended message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return CloneMessage(c.messages[len(c.messages)-1]), true
}
