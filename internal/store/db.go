package store

import (
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/storage"
)

// Collection storage keys. Each collection lives under exactly one key.
const (
	CollectionUsers         = "users"
	CollectionPosts         = "posts"
	CollectionComments      = "comments"
	CollectionChats         = "chats"
	CollectionMessages      = "messages"
	CollectionNotifications = "notifications"
)

// DB bundles the typed collections over a single KV store. The raw KV is
// exposed for the few non-collection keys (session, typing map, presence).
type DB struct {
	KV storage.KV

	Users         *Collection[models.User, *models.User]
	Posts         *Collection[models.Post, *models.Post]
	Comments      *Collection[models.Comment, *models.Comment]
	Chats         *Collection[models.Chat, *models.Chat]
	Messages      *Collection[models.Message, *models.Message]
	Notifications *Collection[models.Notification, *models.Notification]
}

// Open binds all collections to the given KV store.
func Open(kv storage.KV) *DB {
	return &DB{
		KV:            kv,
		Users:         NewCollection[models.User](kv, CollectionUsers),
		Posts:         NewCollection[models.Post](kv, CollectionPosts),
		Comments:      NewCollection[models.Comment](kv, CollectionComments),
		Chats:         NewCollection[models.Chat](kv, CollectionChats),
		Messages:      NewCollection[models.Message](kv, CollectionMessages),
		Notifications: NewCollection[models.Notification](kv, CollectionNotifications),
	}
}
