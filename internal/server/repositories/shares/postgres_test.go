package shares

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func shareRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "file_id", "user_id", "recipient_id", "encrypted_key",
		"key_version", "note", "expires_at", "created_at", "revoked_at",
	})
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s-1", created)
	mock.ExpectQuery(`INSERT INTO shares`).
		WillReturnRows(rows)

	s := &models.Share{
		FileID:       "f-1",
		UserID:       "owner",
		RecipientID:  "bob",
		EncryptedKey: []byte{1, 2, 3},
		KeyVersion:   1,
	}
	got, err := repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "s-1" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected share: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM shares WHERE id`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestListOutgoing_IncludesRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	revoked := now.Add(-time.Minute)
	rows := shareRows().
		AddRow("s-2", "f-1", "owner", "bob", []byte{9}, int64(1), "", nil, now, revoked).
		AddRow("s-1", "f-1", "owner", "carol", []byte{8}, int64(1), "for audit", nil, now.Add(-time.Hour), nil)

	mock.ExpectQuery(`FROM shares\s+WHERE user_id`).
		WillReturnRows(rows)

	got, err := repo.ListOutgoing(context.Background(), "owner", 50, time.Time{}, "")
	if err != nil {
		t.Fatalf("ListOutgoing error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 shares, got %d", len(got))
	}
	if got[0].RevokedAt == nil {
		t.Fatalf("expected first share revoked")
	}
	if got[1].Note != "for audit" {
		t.Fatalf("unexpected note: %q", got[1].Note)
	}
}

func TestRevoke_IdempotentOnAlreadyRevoked(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// zero rows affected: grant already revoked, still success
	mock.ExpectExec(`UPDATE shares SET revoked_at`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Revoke(context.Background(), "s-1", time.Now()); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
}

func TestHasActiveForFileAndRecipient(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(rows)

	ok, err := repo.HasActiveForFileAndRecipient(context.Background(), "f-1", "bob", time.Now())
	if err != nil {
		t.Fatalf("HasActiveForFileAndRecipient error: %v", err)
	}
	if !ok {
		t.Fatalf("expected active grant")
	}
}

func TestDeleteByFileID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM shares WHERE file_id`).
		WithArgs("f-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByFileID(context.Background(), "f-1"); err != nil {
		t.Fatalf("DeleteByFileID error: %v", err)
	}
}
