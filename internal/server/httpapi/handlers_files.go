package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/blockvault/blockvault/internal/server/models"
)

// uploads are ciphertext already; 256 MiB of form memory is plenty
const maxUploadMemory = 256 << 20

type fileResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Folder    string    `json:"folder,omitempty"`
	Sha256    string    `json:"sha256"`
	SizeBytes int64     `json:"size_bytes"`
	AnchorRef string    `json:"anchor_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toFileResponse(f *models.File) fileResponse {
	return fileResponse{
		ID:        f.ID,
		OwnerID:   f.UserID,
		Name:      f.Name,
		Folder:    f.Folder,
		Sha256:    f.Sha256,
		SizeBytes: f.SizeBytes,
		AnchorRef: f.AnchorRef,
		CreatedAt: f.CreatedAt,
	}
}

type fileListResponse struct {
	Files      []fileResponse `json:"files"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	sizeBytes, err := strconv.ParseInt(r.FormValue("size_bytes"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid size_bytes")
		return
	}

	content, header, err := r.FormFile("content")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "missing content")
		return
	}
	defer content.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	file, err := s.vault.Upload(r.Context(), principalID(r), name, content, header.Size, r.FormValue("sha256"), sizeBytes)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFileResponse(file))
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	files, next, err := s.vault.List(r.Context(), principalID(r), limit, r.URL.Query().Get("after"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := fileListResponse{Files: make([]fileResponse, 0, len(files)), NextCursor: next}
	for _, f := range files {
		resp.Files = append(resp.Files, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	file, err := s.vault.Get(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(file))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	url, err := s.vault.Download(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   *string `json:"name"`
		Folder *string `json:"folder"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	file, err := s.vault.UpdateMeta(r.Context(), principalID(r), r.PathValue("id"), req.Name, req.Folder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(file))
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.vault.ListFolders(r.Context(), principalID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"folders": folders})
}

func (s *Server) handleVerifyFile(w http.ResponseWriter, r *http.Request) {
	res, err := s.vault.Verify(r.Context(), principalID(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		FileID    string `json:"file_id"`
		HasBlob   bool   `json:"has_encrypted_blob"`
		AnchorRef string `json:"anchor_ref,omitempty"`
		Sha256    string `json:"sha256"`
	}{res.FileID, res.HasBlob, res.AnchorRef, res.Sha256})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.vault.Delete(r.Context(), principalID(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
