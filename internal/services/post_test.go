package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/models"
)

func TestCreatePostRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.posts.CreatePost(context.Background(), "hello", "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestCreatePostStartsEmpty(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice", "alice@x.com")

	post, err := env.posts.CreatePost(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, post.UserID)
	assert.Empty(t, post.Likes)
	assert.Empty(t, post.Comments)
	assert.NotEmpty(t, post.ID)
}

func TestGetFeedPostsComposition(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "Bob", "bob", "bob@x.com")
	carol := env.register(t, "Carol", "carol", "carol@x.com")
	alice := env.register(t, "Alice", "alice", "alice@x.com")
	env.follow(t, bob.ID)

	env.loginAs(t, "bob@x.com")
	bobPost, err := env.posts.CreatePost(context.Background(), "from bob", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	env.loginAs(t, "carol@x.com")
	_, err = env.posts.CreatePost(context.Background(), "from carol", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	env.loginAs(t, "alice@x.com")
	alicePost, err := env.posts.CreatePost(context.Background(), "from alice", "")
	require.NoError(t, err)

	feed, err := env.posts.GetFeedPosts(alice.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2, "own posts plus followed authors only")

	// Newest first.
	assert.Equal(t, alicePost.ID, feed[0].ID)
	assert.Equal(t, bobPost.ID, feed[1].ID)

	// Carol is not followed.
	for _, p := range feed {
		assert.NotEqual(t, carol.ID, p.UserID)
	}

	// Author snapshots are attached.
	require.NotNil(t, feed[1].User)
	assert.Equal(t, "bob", feed[1].User.Username)

	// Unknown users have empty feeds.
	empty, err := env.posts.GetFeedPosts("ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestToggleLikeIsATrueToggle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice", "alice@x.com")
	post, err := env.posts.CreatePost(context.Background(), "likeable", "")
	require.NoError(t, err)

	liked, err := env.posts.ToggleLike(post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, liked.Likes)

	unliked, err := env.posts.ToggleLike(post.ID)
	require.NoError(t, err)
	assert.Empty(t, unliked.Likes)

	_, err = env.posts.ToggleLike("ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeletePostCascadesToComments(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice", "alice@x.com")
	post, err := env.posts.CreatePost(context.Background(), "with comments", "")
	require.NoError(t, err)

	_, err = env.posts.AddComment(post.ID, "first")
	require.NoError(t, err)
	_, err = env.posts.AddComment(post.ID, "second")
	require.NoError(t, err)

	require.NoError(t, env.posts.DeletePost(post.ID))

	comments, err := env.posts.GetPostComments(post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	orphans, err := env.db.Comments.Filter(func(c *models.Comment) bool { return c.PostID == post.ID })
	require.NoError(t, err)
	assert.Empty(t, orphans, "no orphaned comments may survive the post")

	_, err = env.db.Posts.Get(post.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeletePostAuthorization(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice", "alice@x.com")
	post, err := env.posts.CreatePost(context.Background(), "mine", "")
	require.NoError(t, err)

	env.register(t, "Mallory", "mallory", "mallory@x.com")
	err = env.posts.DeletePost(post.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	assert.ErrorIs(t, env.posts.DeletePost("ghost"), apperrors.ErrNotFound)

	require.NoError(t, env.auth.Logout())
	assert.ErrorIs(t, env.posts.DeletePost(post.ID), apperrors.ErrUnauthenticated)
}

func TestAddCommentAppendsToPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice", "alice@x.com")
	post, err := env.posts.CreatePost(context.Background(), "discuss", "")
	require.NoError(t, err)

	comment, err := env.posts.AddComment(post.ID, "nice!")
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.PostID)
	assert.Equal(t, alice.ID, comment.UserID)

	stored, err := env.db.Posts.Get(post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{comment.ID}, stored.Comments)

	_, err = env.posts.AddComment("ghost", "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetPostCommentsOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Alice", "alice", "alice@x.com")
	post, err := env.posts.CreatePost(context.Background(), "ordered", "")
	require.NoError(t, err)

	first, err := env.posts.AddComment(post.ID, "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := env.posts.AddComment(post.ID, "second")
	require.NoError(t, err)

	comments, err := env.posts.GetPostComments(post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
	require.NotNil(t, comments[0].User)
	assert.Equal(t, "alice", comments[0].User.Username)
}

func TestGetUserPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice", "alice@x.com")
	_, err := env.posts.CreatePost(context.Background(), "one", "")
	require.NoError(t, err)
	_, err = env.posts.CreatePost(context.Background(), "two", "")
	require.NoError(t, err)

	env.register(t, "Bob", "bob", "bob@x.com")
	_, err = env.posts.CreatePost(context.Background(), "bob's", "")
	require.NoError(t, err)

	mine, err := env.posts.GetUserPosts(alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := env.posts.GetAllPosts()
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 0, all[0].LikesCount)
}
