package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/nano-community/backend/internal/models"
)

func TestSignupSigninAndToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	token, account, err := e.accountSvc.Signup(ctx, models.SignupRequest{Name: "Ana", Email: " Ana@Example.com ", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if account.Email != "ana@example.com" || account.Plan != models.PlanFree {
		t.Fatalf("unexpected account %+v", account)
	}
	id, err := e.accountSvc.ParseToken(token)
	if err != nil || id != account.ID {
		t.Fatalf("parse: id=%d err=%v", id, err)
	}

	_, _, err = e.accountSvc.Signup(ctx, models.SignupRequest{Name: "Ana", Email: "ANA@example.com", Password: "whatever1"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if _, err := e.accountSvc.Signin(ctx, models.SigninRequest{Email: "ana@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := e.accountSvc.Signin(ctx, models.SigninRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like a bad password, got %v", err)
	}
	if _, err := e.accountSvc.Signin(ctx, models.SigninRequest{Email: "ANA@example.com", Password: "correct-horse"}); err != nil {
		t.Fatalf("signin: %v", err)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	e := newEnv(t)
	a := e.account(t, "ana")
	token, err := e.accountSvc.IssueToken(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := &AccountService{Secret: []byte("another-secret")}
	if _, err := other.ParseToken(token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("foreign secret: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := e.accountSvc.ParseToken("garbage"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("garbage: expected ErrUnauthenticated, got %v", err)
	}

	// Tokens are issued against the service clock and validated in real time.
	e.clock.Advance(-2 * time.Hour)
	stale, _ := e.accountSvc.IssueToken(a)
	if _, err := e.accountSvc.ParseToken(stale); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired: expected ErrUnauthenticated, got %v", err)
	}
}

func TestFirebaseLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.accountSvc.FirebaseLogin(ctx, "tok"); !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}

	e.accountSvc.Verifier = stubVerifier{err: errors.New("bad token")}
	if _, err := e.accountSvc.FirebaseLogin(ctx, "tok"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	existing := e.account(t, "ana")
	e.accountSvc.Verifier = stubVerifier{identity: &IdentityToken{UID: "uid-1", Email: "ANA@example.com", Name: "Ana"}}
	token, err := e.accountSvc.FirebaseLogin(ctx, "tok")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	id, _ := e.accountSvc.ParseToken(token)
	if id != existing.ID {
		t.Fatalf("expected link to existing account %d, got %d", existing.ID, id)
	}
	linked, _ := e.accounts.GetAccountByFirebaseUID(ctx, "uid-1")
	if linked == nil || linked.ID != existing.ID {
		t.Fatalf("firebase uid not stored")
	}

	e.accountSvc.Verifier = stubVerifier{identity: &IdentityToken{UID: "uid-2", Name: "Ghost"}}
	token, err = e.accountSvc.FirebaseLogin(ctx, "tok")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id, _ = e.accountSvc.ParseToken(token)
	created, _ := e.accounts.GetAccountByID(ctx, id)
	if created.Email != "uid-2@firebase.local" || created.Name != "Ghost" {
		t.Fatalf("unexpected created account %+v", created)
	}
}

func TestUpdateProfileAndStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.account(t, "ana")
	fan := e.account(t, "fan")
	postID := e.post(t, ana.ID, "hello")
	e.post(t, ana.ID, "again")
	e.interactions.TogglePostLike(ctx, fan.ID, postID)
	e.commentSvc.Create(ctx, ana.ID, postID, models.CreateCommentRequest{Content: "self reply"})

	bio := "gopher"
	updated, err := e.accountSvc.UpdateProfile(ctx, ana.ID, models.UpdateAccountRequest{Bio: &bio})
	if err != nil || updated.Bio != "gopher" || updated.Name != "ana" {
		t.Fatalf("update: %+v %v", updated, err)
	}
	if _, err := e.accountSvc.UpdateProfile(ctx, 0, models.UpdateAccountRequest{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	stats, err := e.accountSvc.Stats(ctx, ana.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Posts != 2 || stats.LikesReceived != 1 || stats.CommentsWritten != 1 || stats.Score != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := e.accountSvc.Stats(ctx, 999); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
