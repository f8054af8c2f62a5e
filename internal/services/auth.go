package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zahur13/ConnectSphere/internal/apperrors"
	"github.com/Zahur13/ConnectSphere/internal/models"
	"github.com/Zahur13/ConnectSphere/internal/store"
	"github.com/Zahur13/ConnectSphere/internal/storage"
)

// Session state lives in the KV store next to the collections.
const (
	authTokenKey   = "auth_token"
	currentUserKey = "current_user"
)

// AuthService registers and authenticates users and owns the current
// session: an opaque token plus a password-stripped user snapshot, both
// persisted in the KV store.
type AuthService struct {
	db        *store.DB
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(db *store.DB, jwtSecret string, tokenTTLDays int) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		tokenTTL:  time.Duration(tokenTTLDays) * 24 * time.Hour,
	}
}

// RegisterInput is the profile data required to create an account.
type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the result of a successful register or login.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new account and opens a session for it. Usernames are
// unique case-insensitively (normalized to lowercase); emails are unique
// case-sensitively. Passwords are stored as bcrypt hashes.
func (s *AuthService) Register(input RegisterInput) (*Session, error) {
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return nil, fmt.Errorf("username, email and password are required: %w", apperrors.ErrValidation)
	}

	username := strings.ToLower(strings.TrimSpace(input.Username))

	existing, err := s.db.Users.FindOne(func(u *models.User) bool {
		return u.Email == input.Email || strings.ToLower(u.Username) == username
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("register: %w", apperrors.ErrDuplicateUser)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:           input.Name,
		Username:       username,
		Email:          input.Email,
		Password:       string(hash),
		ProfilePicture: defaultAvatarURL(input.Name),
		Followers:      []string{},
		Following:      []string{},
	}
	if _, err := s.db.Users.Create(user); err != nil {
		return nil, err
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.setSession(token, user); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	return &Session{User: user.Sanitized(), Token: token}, nil
}

// Login opens a session for an existing account.
func (s *AuthService) Login(email, password string) (*Session, error) {
	user, err := s.db.Users.FindOne(func(u *models.User) bool {
		return u.Email == email
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("login: %w", apperrors.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("login: %w", apperrors.ErrInvalidCredentials)
	}

	token, err := s.generateToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.setSession(token, user); err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("User logged in")

	return &Session{User: user.Sanitized(), Token: token}, nil
}

// Logout clears the session state unconditionally.
func (s *AuthService) Logout() error {
	if err := s.db.KV.Delete(authTokenKey); err != nil {
		return err
	}
	return s.db.KV.Delete(currentUserKey)
}

// Token returns the persisted session token, or "" when absent.
func (s *AuthService) Token() string {
	raw, err := s.db.KV.Get(authTokenKey)
	if err != nil {
		return ""
	}
	return string(raw)
}

// CurrentUser returns the cached session snapshot, or nil when the
// snapshot is missing or malformed. The snapshot is not re-validated
// against the users collection.
func (s *AuthService) CurrentUser() *models.User {
	raw, err := s.db.KV.Get(currentUserKey)
	if err != nil {
		return nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == "" {
		return nil
	}
	return &user
}

// IsAuthenticated reports whether a token and a well-formed user snapshot
// are both present.
func (s *AuthService) IsAuthenticated() bool {
	return s.Token() != "" && s.CurrentUser() != nil
}

// requireUser returns the session snapshot or ErrUnauthenticated.
func (s *AuthService) requireUser() (*models.User, error) {
	user := s.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("no active session: %w", apperrors.ErrUnauthenticated)
	}
	return user, nil
}

// setSession persists the token and a sanitized user snapshot.
func (s *AuthService) setSession(token string, user *models.User) error {
	if err := s.db.KV.Set(authTokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	raw, err := json.Marshal(user.Sanitized())
	if err != nil {
		return fmt.Errorf("failed to encode session snapshot: %w", err)
	}
	if err := s.db.KV.Set(currentUserKey, raw); err != nil {
		return fmt.Errorf("failed to persist session snapshot: %w", err)
	}
	return nil
}

// refreshSession replaces the session snapshot when it belongs to user.
// Services call this after mutating the logged-in user's record so the
// cached snapshot does not go stale.
func (s *AuthService) refreshSession(user *models.User) {
	current := s.CurrentUser()
	if current == nil || current.ID != user.ID {
		return
	}
	raw, err := json.Marshal(user.Sanitized())
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode session snapshot")
		return
	}
	if err := s.db.KV.Set(currentUserKey, raw); err != nil {
		log.Error().Err(err).Msg("Failed to refresh session snapshot")
	}
}

// generateToken generates a signed session token for a user. Callers treat
// the token as an opaque string.
func (s *AuthService) generateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// defaultAvatarURL builds the generated avatar for accounts registered
// without a profile picture.
func defaultAvatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=3b82f6&color=fff", url.QueryEscape(name))
}

// isMissing reports whether err is an absent-key or absent-record error.
func isMissing(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, storage.ErrKeyNotFound)
}
