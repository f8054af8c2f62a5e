package services

import (
	"fmt"
	"slices"

	"github.com/Zahur13/ConnectSphere/internal/events"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// Post previews attached to notifications are cut at this many characters.
const notificationSnippetLen = 50

// NotificationService maintains the append-only notification log. Entries
// never change after creation except for the read flag, and deletion is
// terminal.
type NotificationService struct {
	db  *store.DB
	bus *events.Bus
}

// NewNotificationService creates a new notification service.
func NewNotificationService(db *store.DB, bus *events.Bus) *NotificationService {
	return &NotificationService{db: db, bus: bus}
}

// CreateNotification persists a notification and publishes a
// new-notification event for listening views.
func (s *NotificationService) CreateNotification(n *models.Notification) (*models.Notification, error) {
	if _, err := s.db.Notifications.Create(n); err != nil {
		return nil, err
	}
	// Best-effort signal; the entity is already persisted.
	_ = s.bus.Publish(events.TopicNewNotification, events.NewNotification{
		Notification: *n,
		ToUserID:     n.ToUserID,
	})
	return n, nil
}

// GetUserNotifications returns the user's notifications, newest first.
func (s *NotificationService) GetUserNotifications(userID string) ([]models.Notification, error) {
	notifications, err := s.db.Notifications.Filter(func(n *models.Notification) bool {
		return n.ToUserID == userID
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(notifications, func(a, b models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return notifications, nil
}

// GetUnreadCount returns how many of the user's notifications are unread.
func (s *NotificationService) GetUnreadCount(userID string) (int, error) {
	unread, err := s.db.Notifications.Filter(func(n *models.Notification) bool {
		return n.ToUserID == userID && !n.Read
	})
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkAsRead flips a single notification to read. Idempotent.
func (s *NotificationService) MarkAsRead(notificationID string) (*models.Notification, error) {
	return s.db.Notifications.Update(notificationID, func(n *models.Notification) {
		n.Read = true
	})
}

// MarkAllAsRead flips every unread notification addressed to userID.
func (s *NotificationService) MarkAllAsRead(userID string) error {
	_, err := s.db.Notifications.UpdateEach(func(n *models.Notification) bool {
		if n.ToUserID == userID && !n.Read {
			n.Read = true
			return true
		}
		return false
	})
	return err
}

// DeleteNotification removes a single notification.
func (s *NotificationService) DeleteNotification(notificationID string) error {
	_, err := s.db.Notifications.Delete(notificationID)
	return err
}

// ClearAllNotifications removes every notification addressed to userID.
func (s *NotificationService) ClearAllNotifications(userID string) error {
	_, err := s.db.Notifications.DeleteWhere(func(n *models.Notification) bool {
		return n.ToUserID == userID
	})
	return err
}

// NotifyFollow records a follow notification. Self-follows and unknown
// senders are silent no-ops.
func (s *NotificationService) NotifyFollow(fromUserID, toUserID string) error {
	if fromUserID == toUserID {
		return nil
	}
	fromUser, err := s.lookupUser(fromUserID)
	if err != nil || fromUser == nil {
		return err
	}

	_, err = s.CreateNotification(&models.Notification{
		Type:       models.NotificationTypeFollow,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Message:    fmt.Sprintf("%s started following you", fromUser.Name),
	})
	return err
}

// NotifyLike records a like notification for the post's owner. Liking your
// own post, or a post that no longer exists, is a silent no-op.
func (s *NotificationService) NotifyLike(fromUserID, postID string) error {
	post, err := s.lookupPost(postID)
	if err != nil || post == nil || post.UserID == fromUserID {
		return err
	}
	fromUser, err := s.lookupUser(fromUserID)
	if err != nil || fromUser == nil {
		return err
	}

	_, err = s.CreateNotification(&models.Notification{
		Type:       models.NotificationTypeLike,
		FromUserID: fromUserID,
		ToUserID:   post.UserID,
		PostID:     postID,
		Message:    fmt.Sprintf("%s liked your post", fromUser.Name),
	})
	return err
}

// NotifyComment records a comment notification for the post's owner, with
// the same self-suppression as NotifyLike.
func (s *NotificationService) NotifyComment(fromUserID, postID, commentID string) error {
	post, err := s.lookupPost(postID)
	if err != nil || post == nil || post.UserID == fromUserID {
		return err
	}
	fromUser, err := s.lookupUser(fromUserID)
	if err != nil || fromUser == nil {
		return err
	}

	_, err = s.CreateNotification(&models.Notification{
		Type:       models.NotificationTypeComment,
		FromUserID: fromUserID,
		ToUserID:   post.UserID,
		PostID:     postID,
		CommentID:  commentID,
		Message:    fmt.Sprintf("%s commented on your post", fromUser.Name),
	})
	return err
}

// NotifyNewPost fans a new-post notification out to every follower of
// fromUserID, one entity per follower, unbounded by follower count.
func (s *NotificationService) NotifyNewPost(fromUserID string) error {
	fromUser, err := s.lookupUser(fromUserID)
	if err != nil || fromUser == nil {
		return err
	}

	for _, followerID := range fromUser.Followers {
		if _, err := s.CreateNotification(&models.Notification{
			Type:       models.NotificationTypePost,
			FromUserID: fromUserID,
			ToUserID:   followerID,
			Message:    fmt.Sprintf("%s shared a new post", fromUser.Name),
		}); err != nil {
			return err
		}
	}
	return nil
}

// GetEnrichedNotifications joins each of the user's notifications with a
// sender snapshot and, when one is referenced, a truncated post preview,
// newest first.
func (s *NotificationService) GetEnrichedNotifications(userID string) ([]models.EnrichedNotification, error) {
	notifications, err := s.GetUserNotifications(userID)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedNotification, 0, len(notifications))
	for i := range notifications {
		n := notifications[i]

		var fromUser *models.PublicUser
		if u, err := s.lookupUser(n.FromUserID); err != nil {
			return nil, err
		} else if u != nil {
			fromUser = u.PublicProfile()
		}

		var snippet *models.PostSnippet
		if n.PostID != "" {
			post, err := s.lookupPost(n.PostID)
			if err != nil {
				return nil, err
			}
			if post != nil {
				snippet = &models.PostSnippet{
					ID:      post.ID,
					Content: truncate(post.Content, notificationSnippetLen),
				}
			}
		}

		enriched = append(enriched, models.EnrichedNotification{
			Notification: n,
			FromUser:     fromUser,
			Post:         snippet,
		})
	}
	return enriched, nil
}

func (s *NotificationService) lookupUser(id string) (*models.User, error) {
	return s.db.Users.FindOne(func(u *models.User) bool { return u.ID == id })
}

func (s *NotificationService) lookupPost(id string) (*models.Post, error) {
	return s.db.Posts.FindOne(func(p *models.Post) bool { return p.ID == id })
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
