package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/creavibe/creavibe/internal/db/models"
)

var apiTokenCols = []string{"id", "user_id", "name", "token", "revoked", "created_at"}

func newAPITokenRepo(t *testing.T) (*APITokenRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAPITokenRepository(db), mock
}

func sampleTokenRow(revoked bool) *sqlmock.Rows {
	return sqlmock.NewRows(apiTokenCols).
		AddRow("tok-1", "user-1", "Test Token", "cv_abc", revoked, time.Now())
}

// ---------------------------------------------------------------------------
// CreateAPIToken
// ---------------------------------------------------------------------------

func TestCreateAPIToken_Success(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectExec("INSERT INTO api_tokens").
		WithArgs(sqlmock.AnyArg(), "user-1", "Test Token", "cv_abc", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tok := &models.APIToken{UserID: "user-1", Name: "Test Token", Token: "cv_abc", Revoked: true}
	if err := repo.CreateAPIToken(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.ID == "" || tok.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt must be assigned")
	}
	if tok.Revoked {
		t.Error("new tokens must not be revoked")
	}
	expectationsMet(t, mock)
}

func TestCreateAPIToken_DBError(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectExec("INSERT INTO api_tokens").WillReturnError(errDB)

	if err := repo.CreateAPIToken(context.Background(), &models.APIToken{}); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// ListAPITokensByUser
// ---------------------------------------------------------------------------

func TestListAPITokensByUser_Success(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM api_tokens WHERE user_id = \\$1 ORDER BY created_at DESC").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(apiTokenCols).
			AddRow("tok-2", "user-1", "Newer", "cv_2", false, now).
			AddRow("tok-1", "user-1", "Older", "cv_1", true, now.Add(-time.Hour)))

	tokens, err := repo.ListAPITokensByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tokens) != 2 || tokens[0].ID != "tok-2" || !tokens[1].Revoked {
		t.Errorf("unexpected tokens: %+v", tokens)
	}
}

func TestListAPITokensByUser_MissingTable(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectQuery("SELECT .* FROM api_tokens").WillReturnError(errMissingTable)

	tokens, err := repo.ListAPITokensByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("missing table must not be an error: %v", err)
	}
	if tokens == nil || len(tokens) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", tokens)
	}
}

func TestListAPITokensByUser_DBError(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectQuery("SELECT .* FROM api_tokens").WillReturnError(errDB)

	if _, err := repo.ListAPITokensByUser(context.Background(), "user-1"); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// GetActiveAPIToken
// ---------------------------------------------------------------------------

func TestGetActiveAPIToken_FiltersRevoked(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectQuery("SELECT .* FROM api_tokens WHERE token = \\$1 AND revoked = false").
		WithArgs("cv_abc").
		WillReturnRows(sampleTokenRow(false))

	tok, err := repo.GetActiveAPIToken(context.Background(), "cv_abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok == nil || tok.ID != "tok-1" {
		t.Errorf("unexpected token: %+v", tok)
	}
	expectationsMet(t, mock)
}

func TestGetActiveAPIToken_NoRow(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectQuery("SELECT .* FROM api_tokens").WillReturnRows(sqlmock.NewRows(apiTokenCols))

	tok, err := repo.GetActiveAPIToken(context.Background(), "cv_revoked")
	if err != nil || tok != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", tok, err)
	}
}

func TestGetActiveAPIToken_DBError(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectQuery("SELECT .* FROM api_tokens").WillReturnError(errDB)

	if _, err := repo.GetActiveAPIToken(context.Background(), "cv_abc"); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// RevokeAPIToken
// ---------------------------------------------------------------------------

func TestRevokeAPIToken_Idempotent(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	for i := 0; i < 2; i++ {
		mock.ExpectExec("UPDATE api_tokens SET revoked = true WHERE id = \\$1 AND user_id = \\$2").
			WithArgs("tok-1", "user-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	for i := 0; i < 2; i++ {
		found, err := repo.RevokeAPIToken(context.Background(), "user-1", "tok-1")
		if err != nil {
			t.Fatalf("revoke #%d: unexpected error: %v", i+1, err)
		}
		if !found {
			t.Errorf("revoke #%d: expected found = true", i+1)
		}
	}
	expectationsMet(t, mock)
}

func TestRevokeAPIToken_NotFound(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectExec("UPDATE api_tokens").WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := repo.RevokeAPIToken(context.Background(), "user-1", "other")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("expected found = false")
	}
}

func TestRevokeAPIToken_DBError(t *testing.T) {
	repo, mock := newAPITokenRepo(t)
	mock.ExpectExec("UPDATE api_tokens").WillReturnError(errDB)

	if _, err := repo.RevokeAPIToken(context.Background(), "user-1", "tok-1"); err == nil {
		t.Fatal("expected error")
	}
}
