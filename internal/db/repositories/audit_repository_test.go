package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/creavibe/creavibe/internal/db/models"
)

var auditCols = []string{"id", "user_id", "action", "ip_address", "user_agent", "metadata", "created_at"}

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewAuditRepository(db), mock
}

// ---------------------------------------------------------------------------
// CreateAuditLog
// ---------------------------------------------------------------------------

func TestCreateAuditLog_Success(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(sqlmock.AnyArg(), strPtr("user-1"), "POST /api/v1/tokens", strPtr("1.2.3.4"), nil,
			[]byte(`{"status_code":201}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := &models.AuditLog{
		UserID:    strPtr("user-1"),
		Action:    "POST /api/v1/tokens",
		IPAddress: strPtr("1.2.3.4"),
		Metadata:  map[string]interface{}{"status_code": 201},
	}
	if err := repo.CreateAuditLog(context.Background(), log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if log.ID == "" {
		t.Error("ID must be assigned")
	}
	expectationsMet(t, mock)
}

func TestCreateAuditLog_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(errDB)

	if err := repo.CreateAuditLog(context.Background(), &models.AuditLog{Action: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// ListAuditLogs
// ---------------------------------------------------------------------------

func TestListAuditLogs_WithActionFilter(t *testing.T) {
	repo, mock := newAuditRepo(t)
	action := "DELETE /api/v1/tokens/:id"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs WHERE \(user_id = \$1 AND action = \$2\)`).
		WithArgs("user-1", action).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM audit_logs WHERE \(user_id = \$1 AND action = \$2\) ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("user-1", action).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow("log-1", "user-1", action, "1.2.3.4", "curl/8", []byte(`{"request_id":"r1"}`), time.Now()))

	logs, total, err := repo.ListAuditLogs(context.Background(), "user-1", AuditFilters{Action: &action}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Fatalf("got total=%d len=%d, want 1/1", total, len(logs))
	}
	if logs[0].Metadata["request_id"] != "r1" {
		t.Errorf("metadata not decoded: %+v", logs[0].Metadata)
	}
	expectationsMet(t, mock)
}

func TestListAuditLogs_MissingTable(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errMissingTable)

	logs, total, err := repo.ListAuditLogs(context.Background(), "user-1", AuditFilters{}, 20, 0)
	if err != nil || total != 0 || logs == nil || len(logs) != 0 {
		t.Errorf("expected empty result, got (%v, %d, %v)", logs, total, err)
	}
}

func TestListAuditLogs_CountError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errDB)

	if _, _, err := repo.ListAuditLogs(context.Background(), "user-1", AuditFilters{}, 20, 0); err == nil {
		t.Fatal("expected error")
	}
}
