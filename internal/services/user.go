package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/media"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// Profile fields a user may change. Anything else is silently dropped.
var allowedProfileUpdates = map[string]bool{
	"name":           true,
	"bio":            true,
	"profilePicture": true,
	"coverImage":     true,
}

// UserService handles profiles, the follow graph and user search.
type UserService struct {
	db         *store.DB
	auth       *AuthService
	notifier   *NotificationService
	media      media.Store // nil keeps data-URIs inline
	maxResults int
}

// NewUserService creates a new user service. mediaStore may be nil.
func NewUserService(db *store.DB, auth *AuthService, notifier *NotificationService, mediaStore media.Store, maxResults int) *UserService {
	return &UserService{
		db:         db,
		auth:       auth,
		notifier:   notifier,
		media:      mediaStore,
		maxResults: maxResults,
	}
}

// GetAllUsers returns every user, password-stripped.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	users, err := s.db.Users.All()
	if err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(users))
	for i := range users {
		out = append(out, *users[i].Sanitized())
	}
	return out, nil
}

// GetUserByID returns a sanitized profile with derived counters.
func (s *UserService) GetUserByID(userID string) (*models.UserProfile, error) {
	user, err := s.db.Users.Get(userID)
	if err != nil {
		return nil, err
	}
	return s.enrich(user)
}

// GetUserByUsername looks a profile up by its (case-insensitive) username.
func (s *UserService) GetUserByUsername(username string) (*models.UserProfile, error) {
	needle := strings.ToLower(username)
	user, err := s.db.Users.FindOne(func(u *models.User) bool {
		return strings.ToLower(u.Username) == needle
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
	}
	return s.enrich(user)
}

// enrich attaches post/follower/following counters to a sanitized user.
func (s *UserService) enrich(user *models.User) (*models.UserProfile, error) {
	posts, err := s.db.Posts.Filter(func(p *models.Post) bool {
		return p.UserID == user.ID
	})
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{
		User:           *user.Sanitized(),
		PostsCount:     len(posts),
		FollowersCount: len(user.Followers),
		FollowingCount: len(user.Following),
	}, nil
}

// SearchUsers matches the query case-insensitively against name, username
// and email. The requesting user is excluded and results are capped.
func (s *UserService) SearchUsers(query string) ([]models.User, error) {
	term := strings.ToLower(strings.TrimSpace(query))
	current := s.auth.CurrentUser()

	users, err := s.db.Users.All()
	if err != nil {
		return nil, err
	}

	results := []models.User{}
	for i := range users {
		u := &users[i]
		if current != nil && u.ID == current.ID {
			continue
		}
		if !strings.Contains(strings.ToLower(u.Name), term) &&
			!strings.Contains(strings.ToLower(u.Username), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			continue
		}
		results = append(results, *u.Sanitized())
		if len(results) >= s.maxResults {
			break
		}
	}
	return results, nil
}

// ToggleFollow flips the follow edge between the logged-in user and
// targetID, keeping both sides of the edge in sync across two sequential
// collection writes. It returns true when the caller now follows the
// target. A transition to following triggers a follow notification.
func (s *UserService) ToggleFollow(targetID string) (bool, error) {
	current, err := s.auth.requireUser()
	if err != nil {
		return false, err
	}
	if current.ID == targetID {
		return false, fmt.Errorf("cannot follow yourself: %w", apperrors.ErrInvalidOperation)
	}
	if _, err := s.db.Users.Get(targetID); err != nil {
		return false, err
	}

	// Read the caller fresh from the store; the session snapshot may be
	// stale with respect to the follow graph.
	fresh, err := s.db.Users.Get(current.ID)
	if err != nil {
		return false, err
	}
	wasFollowing := slices.Contains(fresh.Following, targetID)

	updatedCaller, err := s.db.Users.Update(current.ID, func(u *models.User) {
		if wasFollowing {
			u.Following = removeID(u.Following, targetID)
		} else {
			u.Following = append(u.Following, targetID)
		}
	})
	if err != nil {
		return false, err
	}
	if _, err := s.db.Users.Update(targetID, func(u *models.User) {
		if wasFollowing {
			u.Followers = removeID(u.Followers, current.ID)
		} else {
			u.Followers = append(u.Followers, current.ID)
		}
	}); err != nil {
		return false, err
	}

	s.auth.refreshSession(updatedCaller)

	if !wasFollowing {
		if err := s.notifier.NotifyFollow(current.ID, targetID); err != nil {
			log.Warn().Err(err).Str("from", current.ID).Str("to", targetID).Msg("Failed to create follow notification")
		}
	}

	log.Debug().
		Str("user_id", current.ID).
		Str("target_id", targetID).
		Bool("following", !wasFollowing).
		Msg("Follow toggled")

	return !wasFollowing, nil
}

// IsFollowing reports whether the logged-in user follows targetID, reading
// the follow graph fresh from the store.
func (s *UserService) IsFollowing(targetID string) bool {
	current := s.auth.CurrentUser()
	if current == nil {
		return false
	}
	fresh, err := s.db.Users.Get(current.ID)
	if err != nil {
		return false
	}
	return slices.Contains(fresh.Following, targetID)
}

// UpdateProfile applies the allow-listed subset of updates to a user.
// Unknown fields are silently dropped. Image fields arriving as data-URIs
// are offloaded to the media store when one is configured. Updating the
// logged-in user refreshes the session snapshot.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, updates map[string]string) (*models.User, error) {
	filtered := make(map[string]string, len(updates))
	for field, value := range updates {
		if !allowedProfileUpdates[field] {
			continue
		}
		if field == "profilePicture" || field == "coverImage" {
			value = offloadImage(ctx, s.media, value)
		}
		filtered[field] = value
	}

	updated, err := s.db.Users.Update(userID, func(u *models.User) {
		for field, value := range filtered {
			switch field {
			case "name":
				u.Name = value
			case "bio":
				u.Bio = value
			case "profilePicture":
				u.ProfilePicture = value
			case "coverImage":
				u.CoverImage = value
			}
		}
	})
	if err != nil {
		return nil, err
	}

	s.auth.refreshSession(updated)

	return updated.Sanitized(), nil
}

// removeID returns ids without id, preserving order.
func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
