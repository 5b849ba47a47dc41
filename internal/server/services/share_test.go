package services

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
	"github.com/blockvault/blockvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPubPEM(t *testing.T) (string, []byte) {
	t.Helper()
	privPEM, pubPEM, err := cryptox.GenerateRSAKeyPair(2048)
	require.NoError(t, err)
	return string(pubPEM), privPEM
}

func newShareFixture(t *testing.T, db *sql.DB) (*ShareService, *fakeRepoManager, []byte) {
	t.Helper()

	pubPEM, privPEM := testPubPEM(t)
	rm := &fakeRepoManager{
		f: &fakeFilesRepo{byID: map[string]*models.File{"f1": {ID: "f1", UserID: "owner"}}},
		u: &fakeUsersRepo{
			byID: map[string]*models.User{
				"owner": {ID: "owner"},
				"bob":   {ID: "bob", SharingPubKey: pubPEM, KeyVersion: 3},
				"nokey": {ID: "nokey"},
			},
			byLogin: map[string]*models.User{
				"owner": {ID: "owner", UserName: "owner"},
				"bob":   {ID: "bob", UserName: "bob"},
				"nokey": {ID: "nokey", UserName: "nokey"},
			},
		},
		s: &fakeSharesRepo{},
	}
	return NewShareService(db, rm), rm, privPEM
}

func TestShareCreate_SealsPassphraseToRecipientKey(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, rm, privPEM := newShareFixture(t, db)

	passphrase := []byte("correct horse battery staple")
	original := append([]byte(nil), passphrase...)

	share, err := s.Create(context.Background(), "owner", "f1", "bob", passphrase, "quarterly report", nil)
	require.NoError(t, err)

	assert.Equal(t, "f1", share.FileID)
	assert.Equal(t, "owner", share.UserID)
	assert.Equal(t, "bob", share.RecipientID)
	assert.Equal(t, int64(3), share.KeyVersion)
	assert.Equal(t, "quarterly report", share.Note)
	assert.NotNil(t, rm.s.created)

	// the passphrase buffer must be wiped after sealing
	assert.NotEqual(t, original, passphrase)

	// the recipient can open the envelope with their private key
	priv, err := cryptox.ParseRSAPrivateKey(privPEM)
	require.NoError(t, err)
	opened, err := cryptox.OpenPassphrase(priv, share.EncryptedKey)
	require.NoError(t, err)
	assert.Equal(t, original, opened)
}

func TestShareCreate_Preconditions(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, _, _ := newShareFixture(t, db)
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		requester string
		fileID    string
		recipient string
		pass      []byte
		expires   *time.Time
		want      error
	}{
		{"empty passphrase", "owner", "f1", "bob", nil, nil, common.ErrorValidation},
		{"expiry in past", "owner", "f1", "bob", []byte("p"), &past, common.ErrorValidation},
		{"file missing", "owner", "nope", "bob", []byte("p"), nil, common.ErrorNotFound},
		{"not the owner", "bob", "f1", "bob", []byte("p"), nil, common.ErrorForbidden},
		{"recipient missing", "owner", "f1", "ghost", []byte("p"), nil, common.ErrorNotFound},
		{"recipient has no key", "owner", "f1", "nokey", []byte("p"), nil, common.ErrorRecipientKeyMissing},
		{"share with yourself", "owner", "f1", "owner", []byte("p"), nil, common.ErrorValidation},
		{"future expiry ok", "owner", "f1", "bob", []byte("p"), &future, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), tt.requester, tt.fileID, tt.recipient, tt.pass, "", tt.expires)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestShareCreate_NoteLength(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, _, _ := newShareFixture(t, db)

	_, err := s.Create(context.Background(), "owner", "f1", "bob", []byte("p"), strings.Repeat("x", maxNoteLen+1), nil)
	assert.ErrorIs(t, err, common.ErrorValidation)

	_, err = s.Create(context.Background(), "owner", "f1", "bob", []byte("p"), strings.Repeat("x", maxNoteLen), nil)
	assert.NoError(t, err)
}

func TestShareCreate_AdminMayShareOthersFile(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, rm, _ := newShareFixture(t, db)
	rm.u.byID["root"] = &models.User{ID: "root", IsAdmin: true}

	share, err := s.Create(context.Background(), "root", "f1", "bob", []byte("p"), "", nil)
	require.NoError(t, err)
	// the grant is attributed to the file owner, not the acting admin
	assert.Equal(t, "owner", share.UserID)
}

func TestListOutgoing_AnnotationAndCursor(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	revoked := now.Add(-time.Minute)
	out := []*models.Share{
		{ID: "0c9d2af0-0000-4000-8000-00000000000a", CreatedAt: now},
		{ID: "0c9d2af0-0000-4000-8000-00000000000b", CreatedAt: now, RevokedAt: &revoked},
	}
	s, rm, _ := newShareFixture(t, db)
	rm.s.outgoing = out

	shares, next, err := s.ListOutgoing(context.Background(), "owner", 2, "")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.Equal(t, models.ShareStatusActive, shares[0].Status(now))
	assert.Equal(t, models.ShareStatusRevoked, shares[1].Status(now))
	assert.NotEmpty(t, next)

	_, _, err = s.ListOutgoing(context.Background(), "owner", 2, "not-a-cursor")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestListIncoming_ShortPageEndsPagination(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, rm, _ := newShareFixture(t, db)
	rm.s.incoming = []*models.Share{{ID: "0c9d2af0-0000-4000-8000-00000000000a", CreatedAt: time.Now()}}

	shares, next, err := s.ListIncoming(context.Background(), "bob", 10, "")
	require.NoError(t, err)
	assert.Len(t, shares, 1)
	assert.Empty(t, next)
}

func TestRevoke(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, rm, _ := newShareFixture(t, db)
	rm.s.byID = map[string]*models.Share{"s1": {ID: "s1", UserID: "owner"}}

	require.NoError(t, s.Revoke(context.Background(), "owner", "s1"))
	assert.Equal(t, []string{"s1"}, rm.s.revoked)

	assert.ErrorIs(t, s.Revoke(context.Background(), "bob", "s1"), common.ErrorForbidden)
	assert.ErrorIs(t, s.Revoke(context.Background(), "owner", "gone"), common.ErrorNotFound)
}

func TestRevoke_AdminAllowed(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s, rm, _ := newShareFixture(t, db)
	rm.s.byID = map[string]*models.Share{"s1": {ID: "s1", UserID: "owner"}}
	rm.u.byID["root"] = &models.User{ID: "root", IsAdmin: true}

	assert.NoError(t, s.Revoke(context.Background(), "root", "s1"))
}
