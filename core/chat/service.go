package chat

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/user"
)

var (
	// errors
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a participant of this conversation")
	ErrUserInactive         = errors.New("user account is deactivated")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
)

type (
	// Repository is the only component allowed to read & write the chats collection.
	Repository interface {
		// GetConversationsForUser returns the conversations the user participates in.
		GetConversationsForUser(ctx context.Context, userID string) ([]Conversation, error)
		// GetConversationBetween returns every conversation record between a and b (in any order).
		GetConversationBetween(ctx context.Context, a, b string) ([]Conversation, error)
		GetConversation(ctx context.Context, id string) (Conversation, error)
		// CreateConversation returns the existing conversation when there is one already.
		CreateConversation(ctx context.Context, id, a, b string) (Conversation, error)
		// AppendMessage lazily creates the conversation and appends a new unread message to it.
		AppendMessage(ctx context.Context, conversationID, senderID, receiverID, text string) (Message, error)
		// ClearConversation empties the messages but keeps the conversation. No-op if absent.
		ClearConversation(ctx context.Context, id string) error
		// DeleteMessage removes exactly one message. No-op if the conversation or the message is absent.
		DeleteMessage(ctx context.Context, conversationID, messageID string) error
		// MarkConversationRead marks the messages received by readerID as read and returns how many changed.
		MarkConversationRead(ctx context.Context, conversationID, readerID string) (int, error)
		// CountUnreadForUser counts the conversations whose last message is unread and was not sent by userID.
		CountUnreadForUser(ctx context.Context, userID string) (int, error)
	}

	// UserGetter finds users by ID.
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	// ActivityRecorder records student activities.
	ActivityRecorder interface {
		Record(ctx context.Context, studentID, activityType, details string) (activity.Activity, error)
	}

	Service struct {
		repo       Repository
		users      UserGetter
		activities ActivityRecorder
		logger     core.Logger
		maxLen     int
	}
)

// NewService builds the chat Service. activities may be nil.
func NewService(repo Repository, users UserGetter, activities ActivityRecorder, logger core.Logger, conf core.ChatConfig) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		activities: activities,
		logger:     logger,
		maxLen:     conf.MaxMessageLength,
	}
}

func (svc *Service) activeUser(ctx context.Context, id string) (user.User, error) {
	usr, err := svc.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsActive {
		return user.User{}, ErrUserInactive
	}
	return usr, nil
}

func (svc *Service) cleanText(text string) (string, error) {
	text = core.CleanString(text)
	if text == "" {
		return "", core.NewValidationError(
			errors.New("message is required"),
			core.FieldError{Field: "message", Error: "this field is required"},
		)
	}
	if svc.maxLen > 0 && utf8.RuneCountInString(text) > svc.maxLen {
		return "", core.NewValidationError(
			errors.New("message is too long"),
			core.FieldError{Field: "message", Error: fmt.Sprintf("message must be at most %d characters", svc.maxLen)},
		)
	}
	return text, nil
}

// Send delivers text from sender to receiver in their canonical conversation.
func (svc *Service) Send(ctx context.Context, senderID, receiverID, text string) (Message, error) {
	text, err := svc.cleanText(text)
	if err != nil {
		return Message{}, err
	}
	if senderID == receiverID {
		return Message{}, core.NewValidationError(ErrSelfConversation)
	}

	sender, err := svc.activeUser(ctx, senderID)
	if err != nil {
		return Message{}, errors.Wrap(err, "getting sender")
	}
	receiver, err := svc.activeUser(ctx, receiverID)
	if err != nil {
		return Message{}, errors.Wrap(err, "getting receiver")
	}

	convID := ResolveConversationID(sender.ID, receiver.ID)
	msg, err := svc.repo.AppendMessage(ctx, convID, sender.ID, receiver.ID, text)
	if err != nil {
		return Message{}, errors.Wrap(err, "appending message")
	}
	svc.logger.Debug("message sent", map[string]interface{}{"conversation": convID, "message": msg.ID})

	if svc.activities != nil && sender.IsStudent() && receiver.IsTeacher() {
		if _, err = svc.activities.Record(ctx, sender.ID, activity.TypeChatTeacher, text); err != nil {
			// the message is persisted already; do not fail the send
			svc.logger.Error("recording chat activity", err, sender)
		}
	}
	return msg, nil
}

// History returns the messages between self and peer: the first conversation record holding messages wins.
func (svc *Service) History(ctx context.Context, selfID, peerID string) ([]Message, error) {
	convs, err := svc.repo.GetConversationBetween(ctx, selfID, peerID)
	if err != nil {
		return nil, errors.Wrap(err, "getting conversations")
	}
	for _, conv := range convs {
		if len(conv.Messages) > 0 {
			msgs := make([]Message, len(conv.Messages))
			copy(msgs, conv.Messages)
			return msgs, nil
		}
	}
	return []Message{}, nil
}

// Open returns the conversation between self and peer, creating it when needed.
func (svc *Service) Open(ctx context.Context, selfID, peerID string) (Conversation, error) {
	if selfID == peerID {
		return Conversation{}, core.NewValidationError(ErrSelfConversation)
	}
	if _, err := svc.activeUser(ctx, peerID); err != nil {
		return Conversation{}, errors.Wrap(err, "getting peer")
	}
	conv, err := svc.repo.CreateConversation(ctx, ResolveConversationID(selfID, peerID), selfID, peerID)
	return conv, errors.Wrap(err, "creating conversation")
}

// Inbox lists the user's conversations, most recently active first.
func (svc *Service) Inbox(ctx context.Context, userID string) ([]InboxEntry, error) {
	convs, err := svc.repo.GetConversationsForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "getting conversations")
	}

	entries := make([]InboxEntry, 0, len(convs))
	for _, conv := range convs {
		entry := InboxEntry{
			ConversationID: conv.ID,
			PeerID:         conv.Peer(userID),
			Unread:         conv.UnreadFor(userID),
		}
		if last, ok := conv.LastMessage(); ok {
			entry.LastMessage = &last
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return lastTimestamp(entries[i]) > lastTimestamp(entries[j])
	})
	return entries, nil
}

func lastTimestamp(e InboxEntry) int64 {
	if e.LastMessage == nil {
		return -1
	}
	return e.LastMessage.Timestamp
}

func (svc *Service) Delete(ctx context.Context, selfID, peerID, messageID string) error {
	return errors.Wrap(
		svc.repo.DeleteMessage(ctx, ResolveConversationID(selfID, peerID), messageID),
		"deleting message",
	)
}

func (svc *Service) Clear(ctx context.Context, selfID, peerID string) error {
	return errors.Wrap(svc.repo.ClearConversation(ctx, ResolveConversationID(selfID, peerID)), "clearing conversation")
}

// MarkRead marks the messages self received from peer as read.
func (svc *Service) MarkRead(ctx context.Context, selfID, peerID string) (int, error) {
	n, err := svc.repo.MarkConversationRead(ctx, ResolveConversationID(selfID, peerID), selfID)
	return n, errors.Wrap(err, "marking conversation read")
}

// UnreadCount is the badge count: conversations whose last message awaits the user.
func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := svc.repo.CountUnreadForUser(ctx, userID)
	return n, errors.Wrap(err, "counting unread conversations")
}
