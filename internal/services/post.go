package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/media"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// PostService handles posts, comments, likes and feed composition.
type PostService struct {
	db       *store.DB
	auth     *AuthService
	notifier *NotificationService
	media    media.Store // nil keeps data-URIs inline
}

// NewPostService creates a new post service. mediaStore may be nil.
func NewPostService(db *store.DB, auth *AuthService, notifier *NotificationService, mediaStore media.Store) *PostService {
	return &PostService{
		db:       db,
		auth:     auth,
		notifier: notifier,
		media:    mediaStore,
	}
}

// CreatePost persists a new post for the logged-in user with empty like
// and comment sets, then fans a new-post notification out to followers.
func (s *PostService) CreatePost(ctx context.Context, content, image string) (*models.Post, error) {
	user, err := s.auth.requireUser()
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		UserID:   user.ID,
		Content:  content,
		Image:    offloadImage(ctx, s.media, image),
		Likes:    []string{},
		Comments: []string{},
	}
	if _, err := s.db.Posts.Create(post); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyNewPost(user.ID); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to notify followers of new post")
	}

	log.Debug().Str("post_id", post.ID).Str("user_id", user.ID).Msg("Post created")

	return post, nil
}

// GetAllPosts returns every post, enriched, newest first.
func (s *PostService) GetAllPosts() ([]models.EnrichedPost, error) {
	posts, err := s.db.Posts.All()
	if err != nil {
		return nil, err
	}
	return s.enrichPosts(posts)
}

// GetUserPosts returns the posts authored by userID, newest first.
func (s *PostService) GetUserPosts(userID string) ([]models.EnrichedPost, error) {
	posts, err := s.db.Posts.Filter(func(p *models.Post) bool {
		return p.UserID == userID
	})
	if err != nil {
		return nil, err
	}
	return s.enrichPosts(posts)
}

// GetFeedPosts returns posts authored by userID or by anyone userID
// follows, newest first. An unknown user has an empty feed.
func (s *PostService) GetFeedPosts(userID string) ([]models.EnrichedPost, error) {
	user, err := s.db.Users.FindOne(func(u *models.User) bool {
		return u.ID == userID
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []models.EnrichedPost{}, nil
	}

	posts, err := s.db.Posts.Filter(func(p *models.Post) bool {
		return p.UserID == userID || slices.Contains(user.Following, p.UserID)
	})
	if err != nil {
		return nil, err
	}
	return s.enrichPosts(posts)
}

// enrichPosts joins posts with author snapshots, comment data and
// counters, sorted newest first.
func (s *PostService) enrichPosts(posts []models.Post) ([]models.EnrichedPost, error) {
	authors, err := s.userIndex()
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedPost, 0, len(posts))
	for i := range posts {
		comments, err := s.GetPostComments(posts[i].ID)
		if err != nil {
			return nil, err
		}

		var author *models.PublicUser
		if u, ok := authors[posts[i].UserID]; ok {
			author = u.PublicProfile()
		}

		enriched = append(enriched, models.EnrichedPost{
			Post:          posts[i],
			User:          author,
			CommentsData:  comments,
			LikesCount:    len(posts[i].Likes),
			CommentsCount: len(comments),
		})
	}

	slices.SortStableFunc(enriched, func(a, b models.EnrichedPost) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return enriched, nil
}

// GetPostComments returns a post's comments with author snapshots, oldest
// first. A deleted or unknown post has no comments.
func (s *PostService) GetPostComments(postID string) ([]models.EnrichedComment, error) {
	comments, err := s.db.Comments.Filter(func(c *models.Comment) bool {
		return c.PostID == postID
	})
	if err != nil {
		return nil, err
	}

	authors, err := s.userIndex()
	if err != nil {
		return nil, err
	}

	enriched := make([]models.EnrichedComment, 0, len(comments))
	for i := range comments {
		var author *models.PublicUser
		if u, ok := authors[comments[i].UserID]; ok {
			author = u.PublicProfile()
		}
		enriched = append(enriched, models.EnrichedComment{
			Comment: comments[i],
			User:    author,
		})
	}

	slices.SortStableFunc(enriched, func(a, b models.EnrichedComment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return enriched, nil
}

// ToggleLike flips the logged-in user's membership in the post's like set.
// A transition to liked triggers a like notification.
func (s *PostService) ToggleLike(postID string) (*models.Post, error) {
	user, err := s.auth.requireUser()
	if err != nil {
		return nil, err
	}

	post, err := s.db.Posts.Get(postID)
	if err != nil {
		return nil, err
	}
	wasLiked := slices.Contains(post.Likes, user.ID)

	updated, err := s.db.Posts.Update(postID, func(p *models.Post) {
		if wasLiked {
			p.Likes = removeID(p.Likes, user.ID)
		} else {
			p.Likes = append(p.Likes, user.ID)
		}
	})
	if err != nil {
		return nil, err
	}

	if !wasLiked {
		if err := s.notifier.NotifyLike(user.ID, postID); err != nil {
			log.Warn().Err(err).Str("post_id", postID).Msg("Failed to create like notification")
		}
	}

	return updated, nil
}

// DeletePost removes a post owned by the logged-in user. Its comments are
// deleted first so no orphaned comment survives the post.
func (s *PostService) DeletePost(postID string) error {
	user, err := s.auth.requireUser()
	if err != nil {
		return err
	}

	post, err := s.db.Posts.Get(postID)
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		return fmt.Errorf("cannot delete another user's post: %w", apperrors.ErrForbidden)
	}

	if _, err := s.db.Comments.DeleteWhere(func(c *models.Comment) bool {
		return c.PostID == postID
	}); err != nil {
		return err
	}
	if _, err := s.db.Posts.Delete(postID); err != nil {
		return err
	}

	log.Debug().Str("post_id", postID).Str("user_id", user.ID).Msg("Post deleted")

	return nil
}

// AddComment creates a comment on a post and appends its id to the post's
// denormalized comment list. The two writes are sequential, not atomic.
// The post owner receives a comment notification.
func (s *PostService) AddComment(postID, content string) (*models.Comment, error) {
	user, err := s.auth.requireUser()
	if err != nil {
		return nil, err
	}

	if _, err := s.db.Posts.Get(postID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  user.ID,
		Content: content,
	}
	if _, err := s.db.Comments.Create(comment); err != nil {
		return nil, err
	}

	if _, err := s.db.Posts.Update(postID, func(p *models.Post) {
		p.Comments = append(p.Comments, comment.ID)
	}); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyComment(user.ID, postID, comment.ID); err != nil {
		log.Warn().Err(err).Str("post_id", postID).Msg("Failed to create comment notification")
	}

	return comment, nil
}

// userIndex loads the users collection once and indexes it by id, so
// enrichment does not re-read the collection per record.
func (s *PostService) userIndex() (map[string]*models.User, error) {
	users, err := s.db.Users.All()
	if err != nil {
		return nil, err
	}
	index := make(map[string]*models.User, len(users))
	for i := range users {
		index[users[i].ID] = &users[i]
	}
	return index, nil
}
