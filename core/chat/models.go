package chat

import (
	"strings"
)

const (
	conversationIDPrefix = "chat_"
	conversationIDSep    = "_"
)

// Message is a single chat line. Only IsRead ever changes after creation.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"` // ms since epoch
	IsRead     bool   `json:"isRead"`
}

// Conversation is the message thread between exactly two participants.
// Messages are kept in insertion (chronological) order.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	Messages     []Message `json:"messages"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Peer returns the participant that is not userID.
func (c *Conversation) Peer(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// IsBetween reports whether the participants are {a, b}, in any order.
func (c *Conversation) IsBetween(a, b string) bool {
	return (c.Participants[0] == a && c.Participants[1] == b) ||
		(c.Participants[0] == b && c.Participants[1] == a)
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// UnreadFor counts the messages addressed to userID that are not read yet.
func (c *Conversation) UnreadFor(userID string) int {
	var n int
	for _, m := range c.Messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n
}

// ResolveConversationID returns the canonical conversation id for a pair of users.
// ResolveConversationID(a, b) == ResolveConversationID(b, a).
func ResolveConversationID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return conversationIDPrefix + a + conversationIDSep + b
}

// ParseConversationID recovers the participants of a canonical conversation id.
// Ids whose participants contain the separator cannot be parsed unambiguously; ok is false for them.
func ParseConversationID(id string) (a, b string, ok bool) {
	if !strings.HasPrefix(id, conversationIDPrefix) {
		return "", "", false
	}
	parts := strings.Split(strings.TrimPrefix(id, conversationIDPrefix), conversationIDSep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] > parts[1] {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// InboxEntry summarizes a conversation from one participant's point of view.
type InboxEntry struct {
	ConversationID string   `json:"conversationId"`
	PeerID         string   `json:"peerId"`
	LastMessage    *Message `json:"lastMessage"`
	Unread         int      `json:"unread"`
}
