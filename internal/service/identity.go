package service

import (
	"context"
	"errors"
	"time"

	"geauxclean/internal/backend"
	"geauxclean/internal/domain"
	"geauxclean/internal/models"
	"geauxclean/internal/worker"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// IdentityResolver answers the wizard's identity question at submit time:
// reuse the live session, create an account, or merge into an existing one
// by signing in.
type IdentityResolver struct {
	auth    domain.AuthClient
	store   domain.Store
	limiter *rate.Limiter
	retry   worker.RetryPolicy
	logger  *zerolog.Logger
}

func NewIdentityResolver(auth domain.AuthClient, store domain.Store, limiter *rate.Limiter, retry worker.RetryPolicy, logger *zerolog.Logger) *IdentityResolver {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(float64(models.RateLimitAttempts)/float64(models.RateLimitWindow)), models.RateLimitAttempts)
	}
	if retry.MaxRetries == 0 {
		retry = worker.RetryPolicy{MaxRetries: 5, InitialDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, BackoffFactor: 2}
	}
	return &IdentityResolver{auth: auth, store: store, limiter: limiter, retry: retry, logger: logger}
}

// Resolve returns the user id to stamp on the booking. The session is
// re-fetched fresh here; a stale copy held since the wizard opened could
// have expired or been replaced.
func (r *IdentityResolver) Resolve(ctx context.Context, email, password, fullName string) (string, error) {
	session, err := r.auth.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if session != nil && session.UserID != "" {
		return session.UserID, nil
	}

	created, err := r.auth.SignUp(ctx, email, password, map[string]string{
		"full_name": fullName,
		"role":      models.RoleCustomer,
	})
	if err == nil {
		if created == nil || created.UserID == "" {
			return "", ErrAuthRequired
		}
		r.awaitProvisioning(ctx, created.UserID)
		return created.UserID, nil
	}

	if !errors.Is(err, backend.ErrEmailTaken) {
		return "", err
	}

	// Account exists: merge by signing in with the same credentials.
	if !r.limiter.Allow() {
		return "", ErrTooManyAttempts
	}
	signedIn, err := r.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			return "", ErrExistingAccountBadPassword
		}
		return "", err
	}
	if signedIn == nil || signedIn.UserID == "" {
		return "", ErrAuthRequired
	}
	return signedIn.UserID, nil
}

// awaitProvisioning polls the users table until the profile row triggered
// by sign-up lands, backing off between attempts. The booking does not
// strictly need the row, so giving up is a warning, not a failure.
func (r *IdentityResolver) awaitProvisioning(ctx context.Context, userID string) {
	for attempt := 1; attempt <= r.retry.MaxRetries; attempt++ {
		var users []models.User
		err := r.store.Select(ctx, models.TableUsers, []domain.Filter{domain.Eq("id", userID)}, nil, &users)
		if err == nil && len(users) > 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(r.retry.NextDelay(attempt)):
		}
	}
	r.logger.Warn().Str("user_id", userID).Msg("profile row not provisioned yet, proceeding")
}
