package cli

import (
	"context"
	"log"

	"github.com/blockvault/blockvault/internal/cryptox"
)

// Keygen generates a fresh RSA sharing key pair, stores the private half in
// the local keystore, and registers the public half with the server. Running
// it again rotates the key; shares sealed to the old key cannot be opened
// with the new one.
func (a *App) Keygen(ctx context.Context) {

	privPEM, pubPEM, err := cryptox.GenerateRSAKeyPair(cryptox.MinRSABits)
	if err != nil {
		log.Printf("error generating key pair: %v", err)
		return
	}

	if err := a.keystore.SavePrivateKey(ctx, privPEM); err != nil {
		log.Printf("error saving private key: %v", err)
		return
	}

	version, err := a.api.RegisterPublicKey(ctx, pubPEM)
	if err != nil {
		reportError(err)
		return
	}

	log.Printf("Sharing key registered (version %d)\n", version)
}
