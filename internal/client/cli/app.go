// Package cli implements the interactive BlockVault client: a REPL that
// encrypts files locally, talks to the backend over REST, and keeps the RSA
// sharing key in a local keystore.
package cli

import (
	"bufio"
	"context"
	"errors"
	"log"
	"os"

	"github.com/blockvault/blockvault/internal/client/api"
	"github.com/blockvault/blockvault/internal/client/config"
	"github.com/blockvault/blockvault/internal/client/keystore"
	"github.com/blockvault/blockvault/internal/common"
)

type App struct {
	config   *config.Config
	api      *api.Client
	keystore *keystore.Keystore
	userName string
	reader   *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	ks, err := keystore.Open(ctx, c.KeystorePath)
	if err != nil {
		log.Printf("error initializing keystore: %s", err.Error())
		return nil, err
	}

	a := &App{
		config:   c,
		api:      api.NewClient(c.ServerEndpointAddr),
		keystore: ks,
		reader:   bufio.NewReader(os.Stdin),
	}

	a.restoreSession(ctx)

	return a, nil
}

// restoreSession reloads a previous login so the user does not have to
// re-authenticate on every start. A stale access token is refreshed once;
// if that fails too the session is dropped.
func (a *App) restoreSession(ctx context.Context) {
	s, err := a.keystore.Session(ctx)
	if err != nil {
		return
	}

	a.api.SetAccessToken(s.AccessToken)
	if _, err := a.api.GetProfile(ctx); err == nil {
		a.userName = s.Username
		return
	}

	pair, err := a.api.Refresh(ctx, s.RefreshToken)
	if err != nil {
		_ = a.keystore.ClearSession(ctx)
		a.api.SetAccessToken("")
		return
	}

	a.api.SetAccessToken(pair.AccessToken)
	a.userName = s.Username
	_ = a.keystore.SaveSession(ctx, &keystore.Session{
		Username:     s.Username,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (a *App) Run(ctx context.Context) {
	defer a.keystore.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}

// reportError prints a friendly message for the well-known failures and the
// raw error for the rest.
func reportError(err error) {
	switch {
	case errors.Is(err, common.ErrorUnauthorized):
		log.Println("Not authorized. Please log in again.")
	case errors.Is(err, common.ErrorForbidden):
		log.Println("Access denied.")
	case errors.Is(err, common.ErrorNotFound):
		log.Println("Not found.")
	case errors.Is(err, common.ErrorRecipientKeyMissing):
		log.Println("The recipient has not registered a sharing key yet.")
	case errors.Is(err, common.ErrorStorageUnavailable):
		log.Println("Storage is temporarily unavailable, try again later.")
	default:
		log.Printf("Error: %v\n", err)
	}
}
