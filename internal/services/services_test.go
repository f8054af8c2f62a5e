package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Zahur13/ConnectSphere/internal/events"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/storage"
	"github.com/Zahur13/ConnectSphere/internal/store"
)

// testEnv wires all services over an in-memory store, mirroring the
// production wiring in cmd.
type testEnv struct {
	db            *store.DB
	bus           *events.Bus
	auth          *AuthService
	users         *UserService
	posts         *PostService
	chats         *ChatService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := store.Open(storage.NewMemoryStore())
	bus := events.NewBus()
	t.Cleanup(func() { bus.Close() })

	auth := NewAuthService(db, "test-secret", 1)
	notifications := NewNotificationService(db, bus)
	users := NewUserService(db, auth, notifications, nil, 10)
	posts := NewPostService(db, auth, notifications, nil)
	chats := NewChatService(db, auth, bus, 3*time.Second, 5*time.Minute)

	return &testEnv{
		db:            db,
		bus:           bus,
		auth:          auth,
		users:         users,
		posts:         posts,
		chats:         chats,
		notifications: notifications,
	}
}

// register creates an account and leaves it as the active session.
func (e *testEnv) register(t *testing.T, name, username, email string) *models.User {
	t.Helper()
	session, err := e.auth.Register(RegisterInput{
		Name:     name,
		Username: username,
		Email:    email,
		Password: "secret1",
	})
	require.NoError(t, err)
	return session.User
}

// loginAs switches the active session to an existing account.
func (e *testEnv) loginAs(t *testing.T, email string) *models.User {
	t.Helper()
	session, err := e.auth.Login(email, "secret1")
	require.NoError(t, err)
	return session.User
}

// follow makes the active session follow targetID.
func (e *testEnv) follow(t *testing.T, targetID string) {
	t.Helper()
	following, err := e.users.ToggleFollow(targetID)
	require.NoError(t, err)
	require.True(t, following)
}
