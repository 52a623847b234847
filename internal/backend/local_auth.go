package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// LocalAuth is the identity provider for the local backend. Sign-up
// provisions the users profile row synchronously, unlike the hosted
// provider where a server trigger fills it in eventually.
type LocalAuth struct {
	store domain.Store

	mu      sync.RWMutex
	session *models.Session
	// password hashes live outside the users table so profile reads never
	// leak them
	hashes map[string][]byte // email -> bcrypt hash
}

func NewLocalAuth(store domain.Store) *LocalAuth {
	return &LocalAuth{store: store, hashes: make(map[string][]byte)}
}

func (a *LocalAuth) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var existing []models.User
	if err := a.store.Select(ctx, models.TableUsers, []domain.Filter{domain.Eq("email", email)}, nil, &existing); err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, &AuthError{Code: "user_already_exists", Message: "a user with this email address has already been registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: metadata["full_name"],
		Role:     metadata["role"],
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if err := a.store.Insert(ctx, models.TableUsers, user, nil); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.hashes[email] = hash
	a.session = &models.Session{
		UserID:      user.ID,
		Email:       email,
		AccessToken: uuid.NewString(),
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	s := *a.session
	a.mu.Unlock()

	return &s, nil
}

func (a *LocalAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var users []models.User
	if err := a.store.Select(ctx, models.TableUsers, []domain.Filter{domain.Eq("email", email)}, nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid login credentials"}
	}

	a.mu.RLock()
	hash, ok := a.hashes[email]
	a.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, &AuthError{Code: "invalid_credentials", Message: "invalid login credentials"}
	}

	a.mu.Lock()
	a.session = &models.Session{
		UserID:      users[0].ID,
		Email:       email,
		AccessToken: uuid.NewString(),
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	s := *a.session
	a.mu.Unlock()

	return &s, nil
}

func (a *LocalAuth) GetSession(ctx context.Context) (*models.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil || a.session.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

func (a *LocalAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()
	return nil
}
