// Package httpapi exposes the vault over a JSON REST surface. Handlers stay
// thin: decode, call a service, map the error, encode.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/blockvault/blockvault/internal/logging"
	"github.com/blockvault/blockvault/internal/server/services"
)

type Server struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	identity  *services.IdentityService
	vault     *services.VaultService
	shares    *services.ShareService
	jwtSecret []byte
}

func NewServer(address string, l logging.Logger, users *services.UserService, identity *services.IdentityService, vault *services.VaultService, shares *services.ShareService, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    l.With("module", "http_server"),
		users:     users,
		identity:  identity,
		vault:     vault,
		shares:    shares,
		jwtSecret: []byte(secretKey),
	}
}

// Handler builds the route table. Split out from Run so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/salt", s.handleSalt)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)

	mux.Handle("GET /api/users/profile", s.withAuth(s.handleProfile))
	mux.Handle("POST /api/users/public_key", s.withAuth(s.handleRegisterPublicKey))
	mux.Handle("DELETE /api/users/public_key", s.withAuth(s.handleRemovePublicKey))

	mux.Handle("POST /api/files", s.withAuth(s.handleUpload))
	mux.Handle("GET /api/files", s.withAuth(s.handleListFiles))
	mux.Handle("GET /api/files/folders", s.withAuth(s.handleListFolders))
	mux.Handle("GET /api/files/{id}", s.withAuth(s.handleGetFile))
	mux.Handle("PATCH /api/files/{id}", s.withAuth(s.handleUpdateFile))
	mux.Handle("GET /api/files/{id}/download", s.withAuth(s.handleDownload))
	mux.Handle("GET /api/files/{id}/verify", s.withAuth(s.handleVerifyFile))
	mux.Handle("DELETE /api/files/{id}", s.withAuth(s.handleDeleteFile))
	mux.Handle("POST /api/files/{id}/share", s.withAuth(s.handleCreateShare))

	mux.Handle("GET /api/shares/incoming", s.withAuth(s.handleIncomingShares))
	mux.Handle("GET /api/shares/outgoing", s.withAuth(s.handleOutgoingShares))
	mux.Handle("DELETE /api/shares/{id}", s.withAuth(s.handleRevokeShare))

	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
