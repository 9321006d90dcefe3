package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/auth"
)

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)
	users := newFakeUserRepo()
	return NewAuthService(users, tokens, quietLogger()), users
}

func TestAuthService_SignInIssuesTokenForAuthor(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Name:      "The Octocat",
		AvatarURL: "https://avatars.example/u/42",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.User.ID)
	assert.Equal(t, "The Octocat", result.User.DisplayName())

	subject, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, subject)
}

func TestAuthService_SecondSignInKeepsIdentity(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "before"})
	require.NoError(t, err)
	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "after", Name: "Renamed"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID, "notes stay attached to the same owner ID")
	assert.Equal(t, "after", second.User.Login)
	assert.Equal(t, "Renamed", second.User.DisplayName())
}

func TestAuthService_SignInFailures(t *testing.T) {
	t.Run("no profile", func(t *testing.T) {
		svc, _ := newAuthFixture(t)
		_, err := svc.LoginOrRegisterGitHub(context.Background(), nil)
		assert.Error(t, err)
	})

	t.Run("storage error is wrapped", func(t *testing.T) {
		svc, users := newAuthFixture(t)
		users.upsertErr = errors.New("disk full")
		_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "u"})
		assert.ErrorIs(t, err, users.upsertErr)
	})
}

func TestAuthService_GetUserByID(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "findme"})
	require.NoError(t, err)

	user, err := svc.GetUserByID(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "findme", user.Login)

	_, err = svc.GetUserByID(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = svc.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAuthService_RejectsGarbageToken(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.ValidateToken("this.is.garbage")
	assert.Error(t, err)
}
