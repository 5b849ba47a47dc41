package httpapi

import (
	"net/http"
	"time"
)

type profileResponse struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	IsAdmin      bool       `json:"is_admin"`
	HasPublicKey bool       `json:"has_public_key"`
	KeyVersion   int64      `json:"key_version"`
	KeyUpdatedAt *time.Time `json:"key_updated_at,omitempty"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.identity.GetProfile(r.Context(), principalID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{
		ID:           user.ID,
		Username:     user.UserName,
		IsAdmin:      user.IsAdmin,
		HasPublicKey: user.SharingPubKey != "",
		KeyVersion:   user.KeyVersion,
		KeyUpdatedAt: user.KeyUpdatedAt,
	})
}

func (s *Server) handleRegisterPublicKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"public_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	version, err := s.identity.RegisterPublicKey(r.Context(), principalID(r), req.PublicKey)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"key_version": version})
}

func (s *Server) handleRemovePublicKey(w http.ResponseWriter, r *http.Request) {
	if err := s.identity.RemovePublicKey(r.Context(), principalID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
