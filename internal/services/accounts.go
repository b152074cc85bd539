package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
	"github.com/anonto42/nano-community/backend/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// IdentityToken is the verified content of a third-party ID token.
type IdentityToken struct {
	UID   string
	Email string
	Name  string
}

// TokenVerifier checks third-party ID tokens (Firebase in production).
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*IdentityToken, error)
}

// AccountStats summarises an account's activity.
type AccountStats struct {
	AccountID       uint  `json:"account_id"`
	Posts           int64 `json:"posts"`
	LikesReceived   int64 `json:"likes_received"`
	CommentsWritten int64 `json:"comments_written"`
	Score           int64 `json:"score"`
}

// AccountService resolves identities, issues tokens and manages profiles.
type AccountService struct {
	Accounts repositories.AccountRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Verifier TokenVerifier
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Signup creates a local account and returns a signed token.
func (s *AccountService) Signup(ctx context.Context, req models.SignupRequest) (string, *models.Account, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.Accounts.GetAccountByEmail(ctx, email); err == nil {
		return "", nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}
	account := &models.Account{Name: req.Name, Email: email, Password: string(hash)}
	if err := s.Accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return "", nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return "", nil, err
	}
	token, err := s.IssueToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Signin checks the password of a local account.
func (s *AccountService) Signin(ctx context.Context, req models.SigninRequest) (string, error) {
	account, err := s.Accounts.GetAccountByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if account.Password == "" {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(account)
}

// FirebaseLogin exchanges a verified ID token for a local token, creating the
// account on first sign-in and linking an existing email account otherwise.
func (s *AccountService) FirebaseLogin(ctx context.Context, idToken string) (string, error) {
	if s.Verifier == nil {
		return "", ErrIdentityUnavailable
	}
	identity, err := s.Verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("id token rejected")
		return "", ErrUnauthenticated
	}
	if identity.UID == "" {
		return "", ErrUnauthenticated
	}

	account, err := s.Accounts.GetAccountByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
		changed := false
		if identity.Name != "" && identity.Name != account.Name {
			account.Name = identity.Name
			changed = true
		}
		if changed {
			if err := s.Accounts.UpdateAccount(ctx, account); err != nil {
				return "", err
			}
		}
	case errors.Is(err, repositories.ErrNotFound):
		account, err = s.linkOrCreate(ctx, identity)
		if err != nil {
			return "", err
		}
	default:
		return "", err
	}
	return s.IssueToken(account)
}

func (s *AccountService) linkOrCreate(ctx context.Context, identity *IdentityToken) (*models.Account, error) {
	uid := identity.UID
	email := normalizeEmail(identity.Email)
	if email != "" {
		account, err := s.Accounts.GetAccountByEmail(ctx, email)
		if err == nil {
			account.FirebaseUID = &uid
			if err := s.Accounts.UpdateAccount(ctx, account); err != nil {
				return nil, err
			}
			return account, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	account := &models.Account{Name: identity.Name, Email: email, FirebaseUID: &uid}
	if account.Email == "" {
		account.Email = uid + "@firebase.local"
	}
	if err := s.Accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Uint("account_id", account.ID).Msg("account created on first sign-in")
	return account, nil
}

// IssueToken signs an HS256 token for the account.
func (s *AccountService) IssueToken(account *models.Account) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	now := s.now()
	claims := &models.AccountClaims{
		AccountID: account.ID,
		Email:     account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uintString(account.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// ParseToken validates a token and returns the account id it carries.
func (s *AccountService) ParseToken(raw string) (uint, error) {
	claims := &models.AccountClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil || !token.Valid || claims.AccountID == 0 {
		return 0, ErrUnauthenticated
	}
	return claims.AccountID, nil
}

// Me returns the caller's own account.
func (s *AccountService) Me(ctx context.Context, accountID uint) (*models.Account, error) {
	if accountID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.Profile(ctx, accountID)
}

// Profile returns any account by id.
func (s *AccountService) Profile(ctx context.Context, accountID uint) (*models.Account, error) {
	account, err := s.Accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// UpdateProfile applies the non-nil fields of req.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID uint, req models.UpdateAccountRequest) (*models.Account, error) {
	account, err := s.Me(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.AvatarURL != nil {
		account.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		account.Bio = *req.Bio
	}
	if err := s.Accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Stats counts posts, likes received and comments written concurrently.
func (s *AccountService) Stats(ctx context.Context, accountID uint) (*AccountStats, error) {
	if _, err := s.Profile(ctx, accountID); err != nil {
		return nil, err
	}
	stats := &AccountStats{AccountID: accountID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.Posts.CountByAuthor(gctx, accountID)
		stats.Posts = n
		return err
	})
	g.Go(func() error {
		n, err := s.Posts.SumLikesByAuthor(gctx, accountID)
		stats.LikesReceived = n
		return err
	})
	g.Go(func() error {
		n, err := s.Comments.CountByAuthor(gctx, accountID)
		stats.CommentsWritten = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.Score = stats.LikesReceived + stats.CommentsWritten + stats.Posts
	return stats, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
