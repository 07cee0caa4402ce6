package localstore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/chat"
)

// chatRecord is the stored shape of a conversation. Besides `participants` and `messages` it still
// understands the single-message fields of records written before conversations held several messages.
type chatRecord struct {
	ID           string          `json:"id"`
	Participants []string        `json:"participants,omitempty"`
	SenderID     string          `json:"senderId,omitempty"`
	ReceiverID   string          `json:"receiverId,omitempty"`
	Message      string          `json:"message,omitempty"`
	Timestamp    int64           `json:"timestamp,omitempty"`
	IsRead       bool            `json:"isRead,omitempty"`
	Messages     *[]chat.Message `json:"messages,omitempty"`
}

const legacyMessageIDPrefix = "legacy-"

type chatRepository struct {
	store *Store
	ids   core.IDGen
	now   core.Clock
}

var _ chat.Repository = (*chatRepository)(nil) // interface compliance check

// NewChatRepository returns a chat.Repository over the chats collection.
// ids and now are used for new messages; now may be nil (wall clock).
func NewChatRepository(store *Store, ids core.IDGen, now core.Clock) chat.Repository {
	return &chatRepository{store: store, ids: ids, now: now}
}

// unboil normalizes a stored record. Old single-message records get their message moved into Messages.
func (repo *chatRepository) unboil(rec chatRecord) chat.Conversation {
	conv := chat.Conversation{ID: rec.ID}
	if len(rec.Participants) == 2 {
		conv.Participants = [2]string{rec.Participants[0], rec.Participants[1]}
	} else {
		conv.Participants = [2]string{rec.SenderID, rec.ReceiverID}
	}

	switch {
	case rec.Messages != nil:
		conv.Messages = make([]chat.Message, len(*rec.Messages))
		copy(conv.Messages, *rec.Messages)
	case rec.Message != "":
		conv.Messages = []chat.Message{{
			ID:         legacyMessageIDPrefix + rec.ID,
			SenderID:   rec.SenderID,
			ReceiverID: rec.ReceiverID,
			Message:    rec.Message,
			Timestamp:  rec.Timestamp,
			IsRead:     rec.IsRead,
		}}
	default:
		conv.Messages = []chat.Message{}
	}
	return conv
}

// legacyFields are the single-message fields of an old record. They are written back as read and never
// derived from the messages.
type legacyFields struct {
	SenderID   string
	ReceiverID string
	Message    string
	Timestamp  int64
	IsRead     bool
}

func legacyOf(rec chatRecord) legacyFields {
	return legacyFields{
		SenderID:   rec.SenderID,
		ReceiverID: rec.ReceiverID,
		Message:    rec.Message,
		Timestamp:  rec.Timestamp,
		IsRead:     rec.IsRead,
	}
}

// unreadFor is the badge check for records whose messages are empty.
func (l legacyFields) unreadFor(userID string) bool {
	return userID != "" && l.ReceiverID == userID && !l.IsRead
}

func (repo *chatRepository) boil(conv chat.Conversation, legacy legacyFields) chatRecord {
	msgs := conv.Messages
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return chatRecord{
		ID:           conv.ID,
		Participants: []string{conv.Participants[0], conv.Participants[1]},
		SenderID:     legacy.SenderID,
		ReceiverID:   legacy.ReceiverID,
		Message:      legacy.Message,
		Timestamp:    legacy.Timestamp,
		IsRead:       legacy.IsRead,
		Messages:     &msgs,
	}
}

func (repo *chatRepository) records(ctx context.Context) ([]chatRecord, error) {
	var records []chatRecord
	if err := repo.store.Read(ctx, CollectionChats, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (repo *chatRepository) query(ctx context.Context) ([]chat.Conversation, error) {
	records, err := repo.records(ctx)
	if err != nil {
		return nil, err
	}
	convs := make([]chat.Conversation, 0, len(records))
	for _, rec := range records {
		convs = append(convs, repo.unboil(rec))
	}
	return convs, nil
}

// update loads the conversations, lets fn mutate them and writes them back when fn reports a change.
// legacy is keyed by conversation id; fn may edit the entries, records without one are written without legacy fields.
func (repo *chatRepository) update(ctx context.Context, fn func(convs *[]chat.Conversation, legacy map[string]*legacyFields) (bool, error)) error {
	var records []chatRecord
	return repo.store.Update(ctx, CollectionChats, &records, func() (bool, error) {
		convs := make([]chat.Conversation, 0, len(records))
		legacy := make(map[string]*legacyFields, len(records))
		for _, rec := range records {
			convs = append(convs, repo.unboil(rec))
			l := legacyOf(rec)
			legacy[rec.ID] = &l
		}
		changed, err := fn(&convs, legacy)
		if err != nil || !changed {
			return false, err
		}
		records = records[:0]
		for _, conv := range convs {
			var l legacyFields
			if stored, ok := legacy[conv.ID]; ok {
				l = *stored
			}
			records = append(records, repo.boil(conv, l))
		}
		return true, nil
	})
}

func indexOf(convs []chat.Conversation, id string) int {
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}

func (repo *chatRepository) GetConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	convs, err := repo.query(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	filtered := make([]chat.Conversation, 0)
	for _, conv := range convs {
		if conv.HasParticipant(userID) {
			filtered = append(filtered, conv)
		}
	}
	return filtered, nil
}

func (repo *chatRepository) GetConversationBetween(ctx context.Context, a, b string) ([]chat.Conversation, error) {
	convs, err := repo.query(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying conversations")
	}
	filtered := make([]chat.Conversation, 0, 1)
	for _, conv := range convs {
		if conv.IsBetween(a, b) {
			filtered = append(filtered, conv)
		}
	}
	return filtered, nil
}

func (repo *chatRepository) GetConversation(ctx context.Context, id string) (chat.Conversation, error) {
	convs, err := repo.query(ctx)
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "querying conversations")
	}
	if i := indexOf(convs, id); i >= 0 {
		return convs[i], nil
	}
	return chat.Conversation{}, chat.ErrConversationNotFound
}

func (repo *chatRepository) CreateConversation(ctx context.Context, id, a, b string) (chat.Conversation, error) {
	var conv chat.Conversation
	err := repo.update(ctx, func(convs *[]chat.Conversation, _ map[string]*legacyFields) (bool, error) {
		if i := indexOf(*convs, id); i >= 0 {
			conv = (*convs)[i]
			return false, nil
		}
		conv = chat.Conversation{ID: id, Participants: [2]string{a, b}, Messages: []chat.Message{}}
		*convs = append(*convs, conv)
		return true, nil
	})
	if err != nil {
		return chat.Conversation{}, errors.Wrap(err, "creating conversation")
	}
	return conv, nil
}

func (repo *chatRepository) AppendMessage(ctx context.Context, conversationID, senderID, receiverID, text string) (chat.Message, error) {
	var msg chat.Message
	err := repo.update(ctx, func(convs *[]chat.Conversation, _ map[string]*legacyFields) (bool, error) {
		// stamped under the collection lock so that timestamps follow the append order
		msg = chat.Message{
			ID:         repo.ids.NewID(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Message:    text,
			Timestamp:  repo.now.UnixMilli(),
		}

		i := indexOf(*convs, conversationID)
		if i < 0 {
			if a, b, ok := chat.ParseConversationID(conversationID); ok {
				pair := chat.Conversation{Participants: [2]string{a, b}}
				if !pair.IsBetween(senderID, receiverID) {
					return false, chat.ErrNotParticipant
				}
			}
			*convs = append(*convs, chat.Conversation{
				ID:           conversationID,
				Participants: [2]string{senderID, receiverID},
				Messages:     []chat.Message{msg},
			})
			return true, nil
		}

		conv := &(*convs)[i]
		if !conv.IsBetween(senderID, receiverID) {
			return false, chat.ErrNotParticipant
		}
		conv.Messages = append(conv.Messages, msg)
		return true, nil
	})
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "appending message")
	}
	return msg, nil
}

func (repo *chatRepository) ClearConversation(ctx context.Context, id string) error {
	return errors.Wrap(repo.update(ctx, func(convs *[]chat.Conversation, _ map[string]*legacyFields) (bool, error) {
		i := indexOf(*convs, id)
		if i < 0 {
			return false, nil
		}
		(*convs)[i].Messages = []chat.Message{}
		return true, nil
	}), "clearing conversation")
}

func (repo *chatRepository) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	return errors.Wrap(repo.update(ctx, func(convs *[]chat.Conversation, _ map[string]*legacyFields) (bool, error) {
		i := indexOf(*convs, conversationID)
		if i < 0 {
			return false, nil
		}
		msgs := (*convs)[i].Messages
		for j := range msgs {
			if msgs[j].ID == messageID {
				kept := make([]chat.Message, 0, len(msgs)-1)
				kept = append(kept, msgs[:j]...)
				kept = append(kept, msgs[j+1:]...)
				(*convs)[i].Messages = kept
				return true, nil
			}
		}
		return false, nil
	}), "deleting message")
}

func (repo *chatRepository) MarkConversationRead(ctx context.Context, conversationID, readerID string) (int, error) {
	var marked int
	err := repo.update(ctx, func(convs *[]chat.Conversation, legacy map[string]*legacyFields) (bool, error) {
		i := indexOf(*convs, conversationID)
		if i < 0 {
			return false, nil
		}
		msgs := (*convs)[i].Messages
		for j := range msgs {
			if msgs[j].ReceiverID == readerID && !msgs[j].IsRead {
				msgs[j].IsRead = true
				marked++
			}
		}
		l, ok := legacy[conversationID]
		if !ok || !l.unreadFor(readerID) {
			return marked > 0, nil
		}
		l.IsRead = true
		return true, nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "marking conversation read")
	}
	return marked, nil
}

// CountUnreadForUser only looks at the last message of each conversation: it is a badge count,
// not the number of unread messages. Conversations without messages fall back to the legacy
// receiverId/isRead fields.
func (repo *chatRepository) CountUnreadForUser(ctx context.Context, userID string) (int, error) {
	records, err := repo.records(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying conversations")
	}
	var count int
	for _, rec := range records {
		conv := repo.unboil(rec)
		if len(conv.Messages) == 0 {
			if legacyOf(rec).unreadFor(userID) {
				count++
			}
			continue
		}
		if !conv.HasParticipant(userID) {
			continue
		}
		if last, _ := conv.LastMessage(); last.SenderID != userID && !last.IsRead {
			count++
		}
	}
	return count, nil
}
