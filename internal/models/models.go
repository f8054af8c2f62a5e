package models

import "time"

// Meta carries the fields every stored record shares. Entities embed it so
// the collection store can assign ids and stamp timestamps generically.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordID returns the record's id.
func (m *Meta) RecordID() string { return m.ID }

// SetRecordID assigns the record's id.
func (m *Meta) SetRecordID(id string) { m.ID = id }

// Stamp sets CreatedAt on first persist and always refreshes UpdatedAt.
func (m *Meta) Stamp(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Touch refreshes UpdatedAt only.
func (m *Meta) Touch(now time.Time) { m.UpdatedAt = now }

// User represents a registered account. Password holds a bcrypt hash and is
// stripped before a user ever leaves the service layer.
type User struct {
	Meta
	Name           string   `json:"name"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	Password       string   `json:"password,omitempty"`
	Bio            string   `json:"bio"`
	ProfilePicture string   `json:"profilePicture"`
	CoverImage     string   `json:"coverImage"`
	Followers      []string `json:"followers"`
	Following      []string `json:"following"`
}

// Sanitized returns a copy of the user with the password hash removed.
func (u *User) Sanitized() *User {
	clean := *u
	clean.Password = ""
	return &clean
}

// PublicProfile returns the small author snapshot embedded into posts,
// comments, notifications and chat summaries.
func (u *User) PublicProfile() *PublicUser {
	return &PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
	}
}

// PublicUser is the minimal user projection shown next to other entities.
type PublicUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

// UserProfile is a sanitized user enriched with derived counters.
type UserProfile struct {
	User
	PostsCount     int `json:"postsCount"`
	FollowersCount int `json:"followersCount"`
	FollowingCount int `json:"followingCount"`
}

// Post represents a feed post. Likes holds liker user ids; Comments holds
// comment ids in insertion order (a denormalized forward reference).
type Post struct {
	Meta
	UserID   string   `json:"userId"`
	Content  string   `json:"content"`
	Image    string   `json:"image,omitempty"`
	Likes    []string `json:"likes"`
	Comments []string `json:"comments"`
}

// Comment belongs to exactly one post and has no independent lifecycle.
type Comment struct {
	Meta
	PostID  string `json:"postId"`
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// EnrichedComment is a comment joined with its author's public profile.
type EnrichedComment struct {
	Comment
	User *PublicUser `json:"user"`
}

// EnrichedPost is a post joined with its author, comments and counters.
type EnrichedPost struct {
	Post
	User          *PublicUser       `json:"user"`
	CommentsData  []EnrichedComment `json:"commentsData"`
	LikesCount    int               `json:"likesCount"`
	CommentsCount int               `json:"commentsCount"`
}

// Message types.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeEmoji = "emoji"
)

// Message is a single direct message inside a chat. Deletable only by its
// sender; Read flips exactly once via MarkMessagesAsRead.
type Message struct {
	Meta
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	Read       bool   `json:"read"`
	Edited     bool   `json:"edited"`
}

// Chat is a pairwise conversation. Exactly one chat exists per unordered
// participant pair. LastMessage and UnreadCount are denormalized caches kept
// in step with the messages collection by the chat service.
type Chat struct {
	Meta
	Participants    []string       `json:"participants"`
	LastMessage     *Message       `json:"lastMessage"`
	LastMessageTime *time.Time     `json:"lastMessageTime"`
	UnreadCount     map[string]int `json:"unreadCount"`
}

// OtherParticipant returns the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	for _, id := range c.Participants {
		if id != userID {
			return id
		}
	}
	return ""
}

// HasParticipant reports whether userID takes part in the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// ChatParticipant is the other side of a chat as shown in a chat list.
type ChatParticipant struct {
	PublicUser
	IsOnline bool `json:"isOnline"`
}

// ChatSummary is a chat enriched for display: the other participant, the
// last message, and the unread count flattened for the requesting user.
type ChatSummary struct {
	Chat
	OtherUser   *ChatParticipant `json:"otherUser"`
	UnreadTotal int              `json:"unread"`
}

// AvailableUser is a followed user that a chat may be started with.
type AvailableUser struct {
	PublicUser
	Bio      string `json:"bio"`
	IsOnline bool   `json:"isOnline"`
	IsMutual bool   `json:"isMutual"`
}

// Notification types.
const (
	NotificationTypeLike    = "like"
	NotificationTypeComment = "comment"
	NotificationTypeFollow  = "follow"
	NotificationTypePost    = "post"
)

// Notification is an append-only event log entry. Content never changes
// after creation; only the read flag mutates, and deletion is terminal.
type Notification struct {
	Meta
	Type       string `json:"type"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	PostID     string `json:"postId,omitempty"`
	CommentID  string `json:"commentId,omitempty"`
	Message    string `json:"message"`
	Read       bool   `json:"read"`
}

// PostSnippet is the truncated post preview attached to notifications.
type PostSnippet struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// EnrichedNotification joins a notification with its originating user and,
// when one is referenced, a truncated post preview.
type EnrichedNotification struct {
	Notification
	FromUser *PublicUser  `json:"fromUser"`
	Post     *PostSnippet `json:"post"`
}
