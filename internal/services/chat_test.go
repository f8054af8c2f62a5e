package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/models"
)

// twoUsersOneFollow registers bob and alice and makes alice follow bob,
// leaving alice as the active session.
func twoUsersOneFollow(t *testing.T, env *testEnv) (alice, bob *models.User) {
	t.Helper()
	bob = env.register(t, "Bob", "bob", "bob@x.com")
	alice = env.register(t, "Alice", "alice", "alice@x.com")
	env.follow(t, bob.ID)
	return alice, bob
}

func TestCanChatRequiresInitiatorFollow(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)

	assert.True(t, env.chats.CanChat(alice.ID, bob.ID), "initiator follows recipient")
	assert.False(t, env.chats.CanChat(bob.ID, alice.ID), "recipient does not follow back")
	assert.False(t, env.chats.CanChat(alice.ID, "ghost"))
	assert.False(t, env.chats.CanChat("ghost", bob.ID))
}

func TestGetOrCreateChatIsForbiddenWithoutFollow(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "Bob", "bob", "bob@x.com")
	alice := env.register(t, "Alice", "alice", "alice@x.com")

	_, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	env.follow(t, bob.ID)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
}

func TestGetOrCreateChatIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)

	// Bob follows alice back so he may initiate too.
	env.loginAs(t, "bob@x.com")
	env.follow(t, alice.ID)

	first, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{alice.ID: 0, bob.ID: 0}, first.UnreadCount)

	// Repeated calls in either participant order return the same chat.
	second, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	reversed, err := env.chats.GetOrCreateChat(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, reversed.ID)

	count, err := env.db.Chats.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count, "exactly one chat per participant pair")
}

func TestSendMessageUnreadAccounting(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := env.chats.SendMessage(chat.ID, "hey bob", "")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, msg.SenderID)
	assert.Equal(t, bob.ID, msg.ReceiverID)
	assert.Equal(t, models.MessageTypeText, msg.Type)
	assert.False(t, msg.Read)

	stored, err := env.db.Chats.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UnreadCount[bob.ID], "receiver's counter increases by exactly 1")
	assert.Equal(t, 0, stored.UnreadCount[alice.ID], "sender's counter is untouched")
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, msg.ID, stored.LastMessage.ID)
	require.NotNil(t, stored.LastMessageTime)

	_, err = env.chats.SendMessage("ghost", "hi", "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMarkMessagesAsRead(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := env.chats.SendMessage(chat.ID, "ping", "")
		require.NoError(t, err)
	}

	total, err := env.chats.GetUnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.NoError(t, env.chats.MarkMessagesAsRead(chat.ID, bob.ID))

	stored, err := env.db.Chats.Get(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCount[bob.ID])

	messages, err := env.chats.GetChatMessages(chat.ID)
	require.NoError(t, err)
	for _, m := range messages {
		assert.True(t, m.Read, "every message addressed to bob is read")
	}

	total, err = env.chats.GetUnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestDeleteMessageSenderOnly(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := env.chats.SendMessage(chat.ID, "oops", "")
	require.NoError(t, err)

	err = env.chats.DeleteMessage(msg.ID, bob.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, env.chats.DeleteMessage(msg.ID, alice.ID))

	messages, err := env.chats.GetChatMessages(chat.ID)
	require.NoError(t, err)
	assert.Empty(t, messages, "hard delete, no tombstone")

	assert.ErrorIs(t, env.chats.DeleteMessage(msg.ID, alice.ID), apperrors.ErrNotFound)
}

func TestGetChatMessagesOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	first, err := env.chats.SendMessage(chat.ID, "one", "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := env.chats.SendMessage(chat.ID, "two", "")
	require.NoError(t, err)

	messages, err := env.chats.GetChatMessages(chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, second.ID, messages[1].ID)
}

func TestGetUserChatsSortedAndEnriched(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register(t, "Bob", "bob", "bob@x.com")
	carol := env.register(t, "Carol", "carol", "carol@x.com")
	alice := env.register(t, "Alice", "alice", "alice@x.com")
	env.follow(t, bob.ID)
	env.follow(t, carol.ID)

	bobChat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	carolChat, err := env.chats.GetOrCreateChat(alice.ID, carol.ID)
	require.NoError(t, err)

	// Only the bob chat has a message; chats without messages sort last.
	_, err = env.chats.SendMessage(bobChat.ID, "hi", "")
	require.NoError(t, err)

	chats, err := env.chats.GetUserChats(alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, bobChat.ID, chats[0].ID)
	assert.Equal(t, carolChat.ID, chats[1].ID)

	require.NotNil(t, chats[0].OtherUser)
	assert.Equal(t, "bob", chats[0].OtherUser.Username)
	assert.Nil(t, chats[1].LastMessage)
}

func TestTypingStatusExpiresLazily(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)
	chat, err := env.chats.GetOrCreateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	base := time.Now()
	env.chats.now = func() time.Time { return base }

	require.NoError(t, env.chats.SetTypingStatus(chat.ID, bob.ID, true))

	// Fresh signal is visible to the other participant.
	names, err := env.chats.GetTypingStatus(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, names)

	// The typist themself is excluded.
	names, err = env.chats.GetTypingStatus(chat.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, names)

	// Entries older than the TTL are filtered at read time.
	env.chats.now = func() time.Time { return base.Add(4 * time.Second) }
	names, err = env.chats.GetTypingStatus(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, names)

	// Explicitly stopping removes the entry.
	env.chats.now = func() time.Time { return base }
	require.NoError(t, env.chats.SetTypingStatus(chat.ID, bob.ID, true))
	require.NoError(t, env.chats.SetTypingStatus(chat.ID, bob.ID, false))
	names, err = env.chats.GetTypingStatus(chat.ID, alice.ID)
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestOnlinePresenceWindow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice", "alice", "alice@x.com")

	assert.False(t, env.chats.IsUserOnline(alice.ID), "no heartbeat yet")

	base := time.Now()
	env.chats.now = func() time.Time { return base }
	require.NoError(t, env.chats.UpdateLastActive(alice.ID))
	assert.True(t, env.chats.IsUserOnline(alice.ID))

	env.chats.now = func() time.Time { return base.Add(4 * time.Minute) }
	assert.True(t, env.chats.IsUserOnline(alice.ID), "still inside the window")

	env.chats.now = func() time.Time { return base.Add(6 * time.Minute) }
	assert.False(t, env.chats.IsUserOnline(alice.ID), "window elapsed")
}

func TestGetAvailableUsers(t *testing.T) {
	env := newTestEnv(t)
	alice, bob := twoUsersOneFollow(t, env)

	// Bob follows back, making the edge mutual.
	env.loginAs(t, "bob@x.com")
	env.follow(t, alice.ID)
	env.loginAs(t, "alice@x.com")

	available, err := env.chats.GetAvailableUsers(alice.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, bob.ID, available[0].ID)
	assert.True(t, available[0].IsMutual)

	// Carol is followed but does not follow back.
	carol := env.register(t, "Carol", "carol", "carol@x.com")
	env.loginAs(t, "alice@x.com")
	env.follow(t, carol.ID)

	available, err = env.chats.GetAvailableUsers(alice.ID)
	require.NoError(t, err)
	require.Len(t, available, 2)
	for _, u := range available {
		if u.ID == carol.ID {
			assert.False(t, u.IsMutual)
		}
	}

	// Unknown user yields an empty list.
	none, err := env.chats.GetAvailableUsers("ghost")
	require.NoError(t, err)
	assert.Empty(t, none)
}
