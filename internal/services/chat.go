package services

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/events"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// Non-collection keys owned by the chat service.
const (
	typingStatusKey  = "typingStatus"
	lastActivePrefix = "lastActive_"
)

// typingMap is chatId -> userId -> last-typed epoch millis. It is a
// transient liveness signal, not domain data; stale entries are filtered
// at read time rather than swept.
type typingMap map[string]map[string]int64

// ChatService handles pairwise chats, messages, typing signals and the
// online-presence heuristic.
type ChatService struct {
	db           *store.DB
	auth         *AuthService
	bus          *events.Bus
	typingTTL    time.Duration
	onlineWindow time.Duration

	now func() time.Time
}

// NewChatService creates a new chat service.
func NewChatService(db *store.DB, auth *AuthService, bus *events.Bus, typingTTL, onlineWindow time.Duration) *ChatService {
	return &ChatService{
		db:           db,
		auth:         auth,
		bus:          bus,
		typingTTL:    typingTTL,
		onlineWindow: onlineWindow,
		now:          time.Now,
	}
}

// CanChat reports whether userID may start a chat with targetID: the
// initiator must follow the recipient; the recipient need not follow back.
func (s *ChatService) CanChat(userID, targetID string) bool {
	user, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == userID })
	if err != nil || user == nil {
		return false
	}
	target, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == targetID })
	if err != nil || target == nil {
		return false
	}
	return slices.Contains(user.Following, targetID)
}

// GetOrCreateChat returns the chat between the two users, creating it with
// a zeroed unread map when none exists. The lookup is order-independent,
// so repeated calls in either participant order are idempotent.
func (s *ChatService) GetOrCreateChat(userID, targetID string) (*models.Chat, error) {
	if !s.CanChat(userID, targetID) {
		return nil, fmt.Errorf("you can only chat with users you follow: %w", apperrors.ErrForbidden)
	}

	existing, err := s.db.Chats.FindOne(func(c *models.Chat) bool {
		return c.HasParticipant(userID) && c.HasParticipant(targetID)
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	chat := &models.Chat{
		Participants: []string{userID, targetID},
		UnreadCount:  map[string]int{userID: 0, targetID: 0},
	}
	if _, err := s.db.Chats.Create(chat); err != nil {
		return nil, err
	}

	log.Debug().Str("chat_id", chat.ID).Strs("participants", chat.Participants).Msg("Chat created")

	return chat, nil
}

// GetUserChats returns the user's chats enriched with the other
// participant's public profile and online status, sorted by most recent
// message descending. Chats with no messages sort last.
func (s *ChatService) GetUserChats(userID string) ([]models.ChatSummary, error) {
	chats, err := s.db.Chats.Filter(func(c *models.Chat) bool {
		return c.HasParticipant(userID)
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for i := range chats {
		chat := chats[i]

		messages, err := s.GetChatMessages(chat.ID)
		if err != nil {
			return nil, err
		}
		// The last message is recomputed from ground truth rather than
		// trusted from the denormalized cache.
		chat.LastMessage = nil
		if len(messages) > 0 {
			last := messages[len(messages)-1]
			chat.LastMessage = &last
		}

		var other *models.ChatParticipant
		otherID := chat.OtherParticipant(userID)
		if otherUser, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == otherID }); err != nil {
			return nil, err
		} else if otherUser != nil {
			other = &models.ChatParticipant{
				PublicUser: *otherUser.PublicProfile(),
				IsOnline:   s.IsUserOnline(otherID),
			}
		}

		summaries = append(summaries, models.ChatSummary{
			Chat:        chat,
			OtherUser:   other,
			UnreadTotal: chat.UnreadCount[userID],
		})
	}

	slices.SortStableFunc(summaries, func(a, b models.ChatSummary) int {
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return 0
		case a.LastMessage == nil:
			return 1
		case b.LastMessage == nil:
			return -1
		default:
			return b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt)
		}
	})
	return summaries, nil
}

// GetChatMessages returns a chat's messages oldest first.
func (s *ChatService) GetChatMessages(chatID string) ([]models.Message, error) {
	messages, err := s.db.Messages.Filter(func(m *models.Message) bool {
		return m.ChatID == chatID
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(messages, func(a, b models.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return messages, nil
}

// SendMessage appends a message from the logged-in user to the chat,
// denormalizes it onto the chat's last-message cache, increments the
// receiver's unread counter and publishes a new-message event.
func (s *ChatService) SendMessage(chatID, content, msgType string) (*models.Message, error) {
	current, err := s.auth.requireUser()
	if err != nil {
		return nil, err
	}

	chat, err := s.db.Chats.Get(chatID)
	if err != nil {
		return nil, err
	}
	receiverID := chat.OtherParticipant(current.ID)

	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := &models.Message{
		ChatID:     chatID,
		SenderID:   current.ID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
	}
	if _, err := s.db.Messages.Create(msg); err != nil {
		return nil, err
	}

	if _, err := s.db.Chats.Update(chatID, func(c *models.Chat) {
		last := *msg
		c.LastMessage = &last
		t := msg.CreatedAt
		c.LastMessageTime = &t
		if c.UnreadCount == nil {
			c.UnreadCount = map[string]int{}
		}
		c.UnreadCount[receiverID]++
	}); err != nil {
		return nil, err
	}

	if err := s.bus.Publish(events.TopicNewMessage, events.NewMessage{
		Message:    *msg,
		ChatID:     chatID,
		ReceiverID: receiverID,
	}); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("Failed to publish new-message event")
	}

	return msg, nil
}

// MarkMessagesAsRead flips the read flag on every unread message addressed
// to userID in the chat and resets the user's unread counter to zero. The
// counter is a denormalized cache of the flags, so both writes belong to
// the same logical operation.
func (s *ChatService) MarkMessagesAsRead(chatID, userID string) error {
	if _, err := s.db.Messages.UpdateEach(func(m *models.Message) bool {
		if m.ChatID == chatID && m.ReceiverID == userID && !m.Read {
			m.Read = true
			return true
		}
		return false
	}); err != nil {
		return err
	}

	_, err := s.db.Chats.Update(chatID, func(c *models.Chat) {
		if c.UnreadCount == nil {
			c.UnreadCount = map[string]int{}
		}
		c.UnreadCount[userID] = 0
	})
	return err
}

// DeleteMessage hard-deletes a message. Only the sender may delete it.
func (s *ChatService) DeleteMessage(messageID, userID string) error {
	msg, err := s.db.Messages.Get(messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return fmt.Errorf("only the sender can delete a message: %w", apperrors.ErrForbidden)
	}
	_, err = s.db.Messages.Delete(messageID)
	return err
}

// GetUnreadCount returns the user's total unread messages across chats.
func (s *ChatService) GetUnreadCount(userID string) (int, error) {
	chats, err := s.db.Chats.Filter(func(c *models.Chat) bool {
		return c.HasParticipant(userID)
	})
	if err != nil {
		return 0, err
	}
	total := 0
	for i := range chats {
		total += chats[i].UnreadCount[userID]
	}
	return total, nil
}

// SetTypingStatus records or clears a typing signal for the user in the
// chat and publishes a typing-status-changed event.
func (s *ChatService) SetTypingStatus(chatID, userID string, isTyping bool) error {
	status, err := s.loadTypingStatus()
	if err != nil {
		return err
	}

	if status[chatID] == nil {
		status[chatID] = map[string]int64{}
	}
	if isTyping {
		status[chatID][userID] = s.now().UnixMilli()
	} else {
		delete(status[chatID], userID)
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode typing status: %w", err)
	}
	if err := s.db.KV.Set(typingStatusKey, raw); err != nil {
		return fmt.Errorf("failed to persist typing status: %w", err)
	}

	if err := s.bus.Publish(events.TopicTypingStatusChanged, events.TypingStatusChanged{
		ChatID:   chatID,
		UserID:   userID,
		IsTyping: isTyping,
	}); err != nil {
		log.Warn().Err(err).Str("chat_id", chatID).Msg("Failed to publish typing event")
	}
	return nil
}

// GetTypingStatus returns the names of users currently typing in the chat,
// excluding excludeUserID. Entries older than the typing TTL are treated
// as expired and filtered at read time; nothing is written back. Returns
// nil when nobody is typing.
func (s *ChatService) GetTypingStatus(chatID, excludeUserID string) ([]string, error) {
	status, err := s.loadTypingStatus()
	if err != nil {
		return nil, err
	}
	entries := status[chatID]
	if len(entries) == 0 {
		return nil, nil
	}

	cutoff := s.now().Add(-s.typingTTL).UnixMilli()

	var names []string
	for userID, typedAt := range entries {
		if typedAt < cutoff || userID == excludeUserID {
			continue
		}
		name := "Someone"
		if user, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == userID }); err == nil && user != nil {
			name = user.Name
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nil
	}
	return names, nil
}

func (s *ChatService) loadTypingStatus() (typingMap, error) {
	status := typingMap{}
	raw, err := s.db.KV.Get(typingStatusKey)
	if isMissing(err) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode typing status: %w", err)
	}
	return status, nil
}

// IsUserOnline reports whether the user was active within the online
// window. The timestamp is never actively expired; staleness is
// recomputed on every read.
func (s *ChatService) IsUserOnline(userID string) bool {
	raw, err := s.db.KV.Get(lastActivePrefix + userID)
	if err != nil {
		return false
	}
	lastActive, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false
	}
	return lastActive > s.now().Add(-s.onlineWindow).UnixMilli()
}

// UpdateLastActive records the user's presence heartbeat.
func (s *ChatService) UpdateLastActive(userID string) error {
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	return s.db.KV.Set(lastActivePrefix+userID, []byte(millis))
}

// GetAvailableUsers returns the users userID may start a chat with: the
// ones userID follows, annotated with a mutual-follow flag and online
// status. Unknown users yield an empty list.
func (s *ChatService) GetAvailableUsers(userID string) ([]models.AvailableUser, error) {
	user, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == userID })
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []models.AvailableUser{}, nil
	}

	available := []models.AvailableUser{}
	for _, followedID := range user.Following {
		followed, err := s.db.Users.FindOne(func(u *models.User) bool { return u.ID == followedID })
		if err != nil {
			return nil, err
		}
		if followed == nil {
			continue
		}
		available = append(available, models.AvailableUser{
			PublicUser: *followed.PublicProfile(),
			Bio:        followed.Bio,
			IsOnline:   s.IsUserOnline(followedID),
			IsMutual:   slices.Contains(followed.Following, userID),
		})
	}
	return available, nil
}
