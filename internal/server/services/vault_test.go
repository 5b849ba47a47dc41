package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validHash = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newVaultService(db *sql.DB, rm *fakeRepoManager, blobs *fakeBlobStore, a *fakeAnchorer) *VaultService {
	return NewVaultService(db, rm, blobs, a, nopLogger{})
}

func TestUpload_Validation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newVaultService(db, &fakeRepoManager{f: &fakeFilesRepo{}}, &fakeBlobStore{}, &fakeAnchorer{})

	tests := []struct {
		name string
		fn   string
		hash string
		size int64
	}{
		{"empty name", "", validHash, 1},
		{"bad hash", "a.txt", "nothex", 1},
		{"zero size", "a.txt", validHash, 0},
		{"negative size", "a.txt", validHash, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(context.Background(), "u1", tt.fn, bytes.NewReader(nil), 0, tt.hash, tt.size)
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}
}

func TestUpload_StoresBlobAndRecordAndAnchors(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	filesRepo := &fakeFilesRepo{anchorRefs: make(chan string, 1)}
	blobs := &fakeBlobStore{}
	s := newVaultService(db, &fakeRepoManager{f: filesRepo}, blobs, &fakeAnchorer{ref: "0xfeed"})

	file, err := s.Upload(context.Background(), "u1", "report.pdf", bytes.NewReader([]byte("ct")), 2, validHash, 1024)
	require.NoError(t, err)

	assert.Equal(t, "file-1", file.ID)
	assert.Equal(t, "u1", file.UserID)
	assert.Empty(t, file.AnchorRef)
	require.Len(t, blobs.putKeys, 1)
	assert.Equal(t, blobs.putKeys[0], file.StorageKey)

	select {
	case ref := <-filesRepo.anchorRefs:
		assert.Equal(t, "0xfeed", ref)
	case <-time.After(2 * time.Second):
		t.Fatal("anchor ref was never recorded")
	}
}

func TestUpload_InsertErrorCleansUpBlob(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	blobs := &fakeBlobStore{}
	s := newVaultService(db, &fakeRepoManager{f: &fakeFilesRepo{createErr: errBoom{}}}, blobs, &fakeAnchorer{})

	_, err := s.Upload(context.Background(), "u1", "a.txt", bytes.NewReader([]byte("ct")), 2, validHash, 1)
	require.Error(t, err)
	require.Len(t, blobs.putKeys, 1)
	assert.Equal(t, blobs.putKeys, blobs.deleted)
}

func TestUpload_BlobErrorIsStorageUnavailable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newVaultService(db, &fakeRepoManager{f: &fakeFilesRepo{}}, &fakeBlobStore{putErr: errBoom{}}, &fakeAnchorer{})

	_, err := s.Upload(context.Background(), "u1", "a.txt", bytes.NewReader(nil), 0, validHash, 1)
	assert.ErrorIs(t, err, common.ErrorStorageUnavailable)
}

func TestList_PaginatesWithCursor(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	full := make([]*models.File, 0, 2)
	for _, id := range []string{"0c9d2af0-0000-4000-8000-000000000001", "0c9d2af0-0000-4000-8000-000000000002"} {
		full = append(full, &models.File{ID: id, CreatedAt: now})
	}

	filesRepo := &fakeFilesRepo{listOut: full}
	s := newVaultService(db, &fakeRepoManager{f: filesRepo}, &fakeBlobStore{}, &fakeAnchorer{})

	files, next, err := s.List(context.Background(), "u1", 2, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)
	require.NotEmpty(t, next)

	// the cursor must round-trip through parseCursor
	before, beforeID, err := parseCursor(next)
	require.NoError(t, err)
	assert.Equal(t, full[1].ID, beforeID)
	assert.Equal(t, now.UnixMicro(), before.UnixMicro())

	// short page means no next cursor
	filesRepo.listOut = full[:1]
	_, next, err = s.List(context.Background(), "u1", 2, "")
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestList_BadCursor(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newVaultService(db, &fakeRepoManager{f: &fakeFilesRepo{}}, &fakeBlobStore{}, &fakeAnchorer{})

	_, _, err := s.List(context.Background(), "u1", 10, "garbage")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestGet_AccessDecisions(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	file := &models.File{ID: "f1", UserID: "owner", StorageKey: "k1"}
	owner := &models.User{ID: "owner"}
	stranger := &models.User{ID: "stranger"}
	grantee := &models.User{ID: "grantee"}

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": file}},
		u: &fakeUsersRepo{byID: map[string]*models.User{"owner": owner, "stranger": stranger, "grantee": grantee}},
		s: &fakeSharesRepo{},
	}
	s := newVaultService(db, rm, &fakeBlobStore{}, &fakeAnchorer{})

	got, err := s.Get(context.Background(), "owner", "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)

	_, err = s.Get(context.Background(), "stranger", "f1")
	assert.ErrorIs(t, err, common.ErrorForbidden)

	rm.s.hasActive = true
	_, err = s.Get(context.Background(), "grantee", "f1")
	assert.NoError(t, err)

	_, err = s.Get(context.Background(), "owner", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateMeta(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	str := func(s string) *string { return &s }

	newFixture := func() (*VaultService, *fakeRepoManager) {
		rm := &fakeRepoManager{
			f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", Name: "old.txt"}}},
			u: &fakeUsersRepo{byID: map[string]*models.User{
				"owner":    {ID: "owner"},
				"stranger": {ID: "stranger"},
				"root":     {ID: "root", IsAdmin: true},
			}},
			s: &fakeSharesRepo{},
		}
		return newVaultService(db, rm, &fakeBlobStore{}, &fakeAnchorer{}), rm
	}

	t.Run("rename and move", func(t *testing.T) {
		s, _ := newFixture()
		file, err := s.UpdateMeta(context.Background(), "owner", "f1", str("  new.txt "), str("taxes"))
		require.NoError(t, err)
		assert.Equal(t, "new.txt", file.Name)
		assert.Equal(t, "taxes", file.Folder)
	})

	t.Run("clear folder", func(t *testing.T) {
		s, rm := newFixture()
		rm.f.byID["f1"].Folder = "taxes"
		file, err := s.UpdateMeta(context.Background(), "owner", "f1", nil, str(""))
		require.NoError(t, err)
		assert.Empty(t, file.Folder)
		assert.Equal(t, "old.txt", file.Name)
	})

	t.Run("no fields is a no-op", func(t *testing.T) {
		s, rm := newFixture()
		file, err := s.UpdateMeta(context.Background(), "owner", "f1", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "old.txt", file.Name)
		assert.Nil(t, rm.f.updateName)
	})

	t.Run("validation", func(t *testing.T) {
		s, _ := newFixture()
		_, err := s.UpdateMeta(context.Background(), "owner", "f1", str("   "), nil)
		assert.ErrorIs(t, err, common.ErrorValidation)
		_, err = s.UpdateMeta(context.Background(), "owner", "f1", str(strings.Repeat("n", maxFileNameLen+1)), nil)
		assert.ErrorIs(t, err, common.ErrorValidation)
		_, err = s.UpdateMeta(context.Background(), "owner", "f1", nil, str(strings.Repeat("d", maxFolderLen+1)))
		assert.ErrorIs(t, err, common.ErrorValidation)
	})

	t.Run("only owner or admin", func(t *testing.T) {
		s, _ := newFixture()
		_, err := s.UpdateMeta(context.Background(), "stranger", "f1", str("x"), nil)
		assert.ErrorIs(t, err, common.ErrorForbidden)
		_, err = s.UpdateMeta(context.Background(), "root", "f1", str("renamed-by-admin"), nil)
		assert.NoError(t, err)
	})
}

func TestListFolders(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	filesRepo := &fakeFilesRepo{foldersOut: []string{"Invoices", "taxes"}}
	s := newVaultService(db, &fakeRepoManager{f: filesRepo}, &fakeBlobStore{}, &fakeAnchorer{})

	folders, err := s.ListFolders(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoices", "taxes"}, folders)
}

func TestVerify(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	file := &models.File{ID: "f1", UserID: "owner", StorageKey: "k1", Sha256: validHash, AnchorRef: "0xabc"}
	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": file}},
		u: &fakeUsersRepo{},
		s: &fakeSharesRepo{},
	}
	blobs := &fakeBlobStore{existsOut: true}
	s := newVaultService(db, rm, blobs, &fakeAnchorer{})

	res, err := s.Verify(context.Background(), "owner", "f1")
	require.NoError(t, err)
	assert.True(t, res.HasBlob)
	assert.Equal(t, validHash, res.Sha256)
	assert.Equal(t, "0xabc", res.AnchorRef)

	blobs.existsOut = false
	res, err = s.Verify(context.Background(), "owner", "f1")
	require.NoError(t, err)
	assert.False(t, res.HasBlob)

	// non-owners learn nothing, not even existence
	_, err = s.Verify(context.Background(), "stranger", "f1")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Verify(context.Background(), "owner", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	blobs.existsOut = true
	blobs.existsErr = errBoom{}
	_, err = s.Verify(context.Background(), "owner", "f1")
	assert.ErrorIs(t, err, common.ErrorStorageUnavailable)
}

func TestDownload_ReturnsPresignedURL(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", StorageKey: "k1"}}},
		u: &fakeUsersRepo{byID: map[string]*models.User{"owner": {ID: "owner"}}},
		s: &fakeSharesRepo{},
	}
	s := newVaultService(db, rm, &fakeBlobStore{presignURL: "https://s3/k1?sig"}, &fakeAnchorer{})

	url, err := s.Download(context.Background(), "owner", "f1")
	require.NoError(t, err)
	assert.Equal(t, "https://s3/k1?sig", url)
}

func TestDownload_PresignErrorIsStorageUnavailable(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", StorageKey: "k1"}}},
		u: &fakeUsersRepo{byID: map[string]*models.User{"owner": {ID: "owner"}}},
		s: &fakeSharesRepo{},
	}
	s := newVaultService(db, rm, &fakeBlobStore{presignErr: errBoom{}}, &fakeAnchorer{})

	_, err := s.Download(context.Background(), "owner", "f1")
	assert.ErrorIs(t, err, common.ErrorStorageUnavailable)
}

func TestDelete_CascadesInOneTransaction(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	filesRepo := &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", StorageKey: "k1"}}}
	sharesRepo := &fakeSharesRepo{}
	blobs := &fakeBlobStore{}
	rm := &fakeRepoManager{
		f: filesRepo,
		u: &fakeUsersRepo{byID: map[string]*models.User{"owner": {ID: "owner"}}},
		s: sharesRepo,
	}
	s := newVaultService(db, rm, blobs, &fakeAnchorer{})

	require.NoError(t, s.Delete(context.Background(), "owner", "f1"))
	assert.Equal(t, []string{"f1"}, sharesRepo.delByFile)
	assert.Equal(t, []string{"f1"}, filesRepo.deleted)
	assert.Equal(t, []string{"k1"}, blobs.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete_Forbidden(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner"}}},
		u: &fakeUsersRepo{byID: map[string]*models.User{"other": {ID: "other"}}},
		s: &fakeSharesRepo{},
	}
	s := newVaultService(db, rm, &fakeBlobStore{}, &fakeAnchorer{})

	err := s.Delete(context.Background(), "other", "f1")
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestDelete_AdminAllowed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", StorageKey: "k1"}}},
		u: &fakeUsersRepo{byID: map[string]*models.User{"root": {ID: "root", IsAdmin: true}}},
		s: &fakeSharesRepo{},
	}
	s := newVaultService(db, rm, &fakeBlobStore{}, &fakeAnchorer{})

	assert.NoError(t, s.Delete(context.Background(), "root", "f1"))
}

func TestDelete_TxRollsBackOnShareCascadeError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	filesRepo := &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner", StorageKey: "k1"}}}
	blobs := &fakeBlobStore{}
	rm := &fakeRepoManager{
		f: filesRepo,
		u: &fakeUsersRepo{byID: map[string]*models.User{"owner": {ID: "owner"}}},
		s: &fakeSharesRepo{delByFileErr: errBoom{}},
	}
	s := newVaultService(db, rm, blobs, &fakeAnchorer{})

	err := s.Delete(context.Background(), "owner", "f1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorNotFound))
	assert.Empty(t, filesRepo.deleted)
	assert.Empty(t, blobs.deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}
