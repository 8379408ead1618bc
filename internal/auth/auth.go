// Package auth keeps local accounts and the signed-in session.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/keyring"
	"github.com/julianstephens/tripkit/internal/logger"
	"github.com/julianstephens/tripkit/internal/localstore"
	"github.com/julianstephens/tripkit/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password (demo account: demo@example.com / demo123)")
	ErrInvalidEmail       = errors.New("a valid email address is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", constants.MinPassword)
	ErrEmailTaken         = errors.New("email is already registered")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Claims is the payload of a session token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Options configures a Manager. Zero values pick production defaults.
type Options struct {
	// UseKeyring keeps the signing secret in the OS keyring, falling back to the store.
	UseKeyring bool
	// Cost is the bcrypt cost.
	Cost int
	// Now overrides the clock.
	Now func() time.Time
}

// Manager registers users, signs them in and out, and resolves the current session.
type Manager struct {
	store *localstore.Store
	opts  Options

	mu     sync.Mutex
	secret []byte
}

func NewManager(store *localstore.Store, opts Options) *Manager {
	if opts.Cost == 0 {
		opts.Cost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{store: store, opts: opts}
}

// EnsureDemo seeds the demo account when no users exist yet.
func (m *Manager) EnsureDemo() error {
	creds, err := m.credentials()
	if err != nil {
		return err
	}
	if len(creds) > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(constants.DemoPassword), m.opts.Cost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}
	demo := models.Credential{
		User: models.User{
			ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("tripkit:"+constants.DemoEmail)).String(),
			Email:     constants.DemoEmail,
			Name:      constants.DemoName,
			CreatedAt: models.FormatTimestamp(m.opts.Now()),
		},
		PasswordHash: string(hash),
	}
	logger.Debug("Seeding demo account", "email", demo.User.Email)
	return m.saveCredentials(append(creds, demo))
}

// Register creates an account and signs it in.
func (m *Manager) Register(email, password, name string) (models.User, error) {
	email = normalizeEmail(email)
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return models.User{}, ErrInvalidEmail
	}
	if len(password) < constants.MinPassword {
		return models.User{}, ErrWeakPassword
	}

	creds, err := m.credentials()
	if err != nil {
		return models.User{}, err
	}
	for _, c := range creds {
		if c.User.Email == email {
			return models.User{}, ErrEmailTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.opts.Cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: models.FormatTimestamp(m.opts.Now()),
	}
	if err := m.saveCredentials(append(creds, models.Credential{User: user, PasswordHash: string(hash)})); err != nil {
		return models.User{}, err
	}
	if err := m.startSession(user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Login verifies the password and stores a new session token.
func (m *Manager) Login(email, password string) (models.User, error) {
	email = normalizeEmail(email)
	creds, err := m.credentials()
	if err != nil {
		return models.User{}, err
	}
	for _, c := range creds {
		if c.User.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) != nil {
			return models.User{}, ErrInvalidCredentials
		}
		if err := m.startSession(c.User); err != nil {
			return models.User{}, err
		}
		return c.User, nil
	}
	return models.User{}, ErrInvalidCredentials
}

// Logout drops the stored session. Logging out twice is not an error.
func (m *Manager) Logout() error {
	if err := m.store.Remove(constants.KeySession); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the signed-in user, or ErrNotSignedIn when there is no
// valid session. Expired or tampered tokens are cleared.
func (m *Manager) CurrentUser() (models.User, error) {
	var token string
	ok, err := m.store.GetJSON(constants.KeySession, &token)
	if err != nil {
		logger.Warn("Stored session is unreadable", "error", err)
		return models.User{}, ErrNotSignedIn
	}
	if !ok || token == "" {
		return models.User{}, ErrNotSignedIn
	}

	claims, err := m.parse(token)
	if err != nil {
		logger.Debug("Discarding invalid session", "error", err)
		_ = m.Logout()
		return models.User{}, ErrNotSignedIn
	}

	creds, err := m.credentials()
	if err != nil {
		return models.User{}, err
	}
	for _, c := range creds {
		if c.User.ID == claims.UserID {
			return c.User, nil
		}
	}
	_ = m.Logout()
	return models.User{}, ErrNotSignedIn
}

// UserID returns the signed-in user's id or "" when signed out.
func (m *Manager) UserID() string {
	u, err := m.CurrentUser()
	if err != nil {
		return ""
	}
	return u.ID
}

// Users lists registered accounts without password hashes.
func (m *Manager) Users() ([]models.User, error) {
	creds, err := m.credentials()
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(creds))
	for _, c := range creds {
		users = append(users, c.User)
	}
	return users, nil
}

func (m *Manager) startSession(user models.User) error {
	token, err := m.issue(user)
	if err != nil {
		return err
	}
	if err := m.store.SetJSON(constants.KeySession, token); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	logger.Info("Signed in", "user", user.Email)
	return nil
}

func (m *Manager) issue(user models.User) (string, error) {
	secret, err := m.signingSecret()
	if err != nil {
		return "", err
	}
	now := m.opts.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    constants.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) parse(token string) (*Claims, error) {
	secret, err := m.signingSecret()
	if err != nil {
		return nil, err
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.AppName),
		jwt.WithTimeFunc(m.opts.Now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenMalformed
	}
	return claims, nil
}

// signingSecret loads or creates the HMAC secret once per Manager.
func (m *Manager) signingSecret() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.secret != nil {
		return m.secret, nil
	}

	if m.opts.UseKeyring {
		if s, err := keyring.Get(keyring.SessionSecret); err == nil {
			m.secret = []byte(s)
			return m.secret, nil
		} else if !errors.Is(err, keyring.ErrNotFound) {
			logger.Warn("Keyring unavailable, keeping session secret in store", "error", err)
		}
	}

	var stored string
	if ok, err := m.store.GetJSON(constants.KeySessionSecret, &stored); err == nil && ok && stored != "" {
		m.secret = []byte(stored)
		return m.secret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	secret := hex.EncodeToString(buf)

	if m.opts.UseKeyring {
		if err := keyring.Set(keyring.SessionSecret, secret); err == nil {
			m.secret = []byte(secret)
			return m.secret, nil
		}
	}
	if err := m.store.SetJSON(constants.KeySessionSecret, secret); err != nil {
		return nil, fmt.Errorf("failed to store session secret: %w", err)
	}
	m.secret = []byte(secret)
	return m.secret, nil
}

func (m *Manager) credentials() ([]models.Credential, error) {
	var creds []models.Credential
	if _, err := m.store.GetJSON(constants.KeyUsers, &creds); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return creds, nil
}

func (m *Manager) saveCredentials(creds []models.Credential) error {
	if err := m.store.SetJSON(constants.KeyUsers, creds); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
