package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blockvault/blockvault/internal/server/models"
)

type createShareRequest struct {
	Recipient  string     `json:"recipient"`
	Passphrase []byte     `json:"passphrase"`
	Note       string     `json:"note"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type shareResponse struct {
	ID           string     `json:"id"`
	FileID       string     `json:"file_id"`
	OwnerID      string     `json:"owner_id"`
	RecipientID  string     `json:"recipient_id"`
	EncryptedKey []byte     `json:"encrypted_key,omitempty"`
	KeyVersion   int64      `json:"key_version"`
	Note         string     `json:"note,omitempty"`
	Status       string     `json:"status"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// toShareResponse renders a grant. The envelope is included only for the
// recipient; the owner's history view never needs it.
func toShareResponse(sh *models.Share, now time.Time, includeKey bool) shareResponse {
	resp := shareResponse{
		ID:          sh.ID,
		FileID:      sh.FileID,
		OwnerID:     sh.UserID,
		RecipientID: sh.RecipientID,
		KeyVersion:  sh.KeyVersion,
		Note:        sh.Note,
		Status:      sh.Status(now),
		ExpiresAt:   sh.ExpiresAt,
		RevokedAt:   sh.RevokedAt,
		CreatedAt:   sh.CreatedAt,
	}
	if includeKey {
		resp.EncryptedKey = sh.EncryptedKey
	}
	return resp
}

type shareListResponse struct {
	Shares     []shareResponse `json:"shares"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req createShareRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	share, err := s.shares.Create(r.Context(), principalID(r), r.PathValue("id"), req.Recipient, req.Passphrase, req.Note, req.ExpiresAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShareResponse(share, time.Now(), false))
}

func (s *Server) handleOutgoingShares(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	shares, next, err := s.shares.ListOutgoing(r.Context(), principalID(r), limit, r.URL.Query().Get("after"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeShareList(w, shares, next, false)
}

func (s *Server) handleIncomingShares(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	shares, next, err := s.shares.ListIncoming(r.Context(), principalID(r), limit, r.URL.Query().Get("after"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeShareList(w, shares, next, true)
}

func (s *Server) writeShareList(w http.ResponseWriter, shares []*models.Share, next string, includeKey bool) {
	now := time.Now()
	resp := shareListResponse{Shares: make([]shareResponse, 0, len(shares)), NextCursor: next}
	for _, sh := range shares {
		resp.Shares = append(resp.Shares, toShareResponse(sh, now, includeKey))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	if err := s.shares.Revoke(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
