package services

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/dbx"
	"github.com/blockvault/blockvault/internal/logging"
	"github.com/blockvault/blockvault/internal/server/models"
	filesrepo "github.com/blockvault/blockvault/internal/server/repositories/files"
	refreshtokensrepo "github.com/blockvault/blockvault/internal/server/repositories/refreshtokens"
	sharesrepo "github.com/blockvault/blockvault/internal/server/repositories/shares"
	usersrepo "github.com/blockvault/blockvault/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

// nopLogger discards everything; service tests assert behavior, not logs.
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

// --- fake repositories ---

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byLogin    map[string]*models.User
	byID       map[string]*models.User
	getErr     error
	setKeyOut  int64
	setKeyErr  error
	setKeyPEM  string
	removeErr  error
	removed    []string
	adminErr   error
	adminNames []string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byLogin[userName]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) SetPublicKey(ctx context.Context, userID string, pem string) (int64, error) {
	if f.setKeyErr != nil {
		return 0, f.setKeyErr
	}
	f.setKeyPEM = pem
	return f.setKeyOut, nil
}

func (f *fakeUsersRepo) RemovePublicKey(ctx context.Context, userID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, userID)
	return nil
}

func (f *fakeUsersRepo) SetAdmin(ctx context.Context, userName string, isAdmin bool) error {
	if f.adminErr != nil {
		return f.adminErr
	}
	f.adminNames = append(f.adminNames, userName)
	return nil
}

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error { return f.delErr }

type fakeFilesRepo struct {
	createErr error
	created   *models.File

	byID   map[string]*models.File
	getErr error

	listOut []*models.File
	listErr error

	delErr  error
	deleted []string

	updateErr    error
	updateName   *string
	updateFolder *string

	foldersOut []string
	foldersErr error

	anchorErr  error
	anchorRefs chan string
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	file.ID = "file-1"
	file.CreatedAt = time.Now()
	f.created = file
	return file, nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if file, ok := f.byID[id]; ok {
		return file, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) ListByOwner(ctx context.Context, userID string, limit int, before time.Time, beforeID string) ([]*models.File, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeFilesRepo) UpdateMeta(ctx context.Context, id string, name *string, folder *string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateName, f.updateFolder = name, folder
	if file, ok := f.byID[id]; ok {
		if name != nil {
			file.Name = *name
		}
		if folder != nil {
			file.Folder = *folder
		}
		return nil
	}
	return common.ErrorNotFound
}

func (f *fakeFilesRepo) ListFolders(ctx context.Context, userID string) ([]string, error) {
	if f.foldersErr != nil {
		return nil, f.foldersErr
	}
	return f.foldersOut, nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeFilesRepo) SetAnchorRef(ctx context.Context, id string, anchorRef string) error {
	if f.anchorErr != nil {
		return f.anchorErr
	}
	if f.anchorRefs != nil {
		f.anchorRefs <- anchorRef
	}
	return nil
}

type fakeSharesRepo struct {
	createErr error
	created   *models.Share

	byID   map[string]*models.Share
	getErr error

	outgoing []*models.Share
	incoming []*models.Share
	listErr  error

	revokeErr error
	revoked   []string

	hasActive    bool
	hasActiveErr error

	delByFileErr error
	delByFile    []string
}

func (f *fakeSharesRepo) Create(ctx context.Context, share *models.Share) (*models.Share, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	share.ID = "share-1"
	share.CreatedAt = time.Now()
	f.created = share
	return share, nil
}

func (f *fakeSharesRepo) GetByID(ctx context.Context, id string) (*models.Share, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if s, ok := f.byID[id]; ok {
		return s, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeSharesRepo) ListOutgoing(ctx context.Context, ownerID string, limit int, before time.Time, beforeID string) ([]*models.Share, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.outgoing, nil
}

func (f *fakeSharesRepo) ListIncomingActive(ctx context.Context, recipientID string, now time.Time, limit int, before time.Time, beforeID string) ([]*models.Share, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.incoming, nil
}

func (f *fakeSharesRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeSharesRepo) HasActiveForFileAndRecipient(ctx context.Context, fileID, recipientID string, now time.Time) (bool, error) {
	return f.hasActive, f.hasActiveErr
}

func (f *fakeSharesRepo) DeleteByFileID(ctx context.Context, fileID string) error {
	if f.delByFileErr != nil {
		return f.delByFileErr
	}
	f.delByFile = append(f.delByFile, fileID)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	f *fakeFilesRepo
	s *fakeSharesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Files(db dbx.DBTX) filesrepo.Repository                 { return m.f }
func (m *fakeRepoManager) Shares(db dbx.DBTX) sharesrepo.Repository               { return m.s }

// --- fake blob store and anchorer ---

type fakeBlobStore struct {
	putErr  error
	putKeys []string

	presignURL string
	presignErr error

	existsOut bool
	existsErr error

	delErr  error
	deleted []string
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.putKeys = append(f.putKeys, key)
	return nil
}

func (f *fakeBlobStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return f.presignURL, nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	return f.existsOut, f.existsErr
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeAnchorer struct {
	ref string
	err error
}

func (f *fakeAnchorer) Anchor(ctx context.Context, sha256hex string, sizeBytes int64, ref string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.ref, nil
}
