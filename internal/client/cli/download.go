package cli

import (
	"context"
	"log"
	"os"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
)

// Download fetches the ciphertext blob and opens it locally. For own files
// the passphrase is typed in; for received shares it is recovered from the
// grant envelope with the keystore's private key.
func (a *App) Download(ctx context.Context) {

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	shareID, err := GetSimpleText(a.reader, "Enter share id (empty if it is your own file)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	outPath, err := GetSimpleText(a.reader, "Save as", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var passphrase []byte
	if shareID == "" {
		passphrase, err = GetPassword("Enter file passphrase", os.Stdout)
		if err != nil {
			log.Printf("error: %v", err)
			return
		}
	} else {
		passphrase, err = a.openSharePassphrase(ctx, shareID)
		if err != nil {
			reportError(err)
			return
		}
	}
	defer common.WipeByteArray(passphrase)

	sealed, err := a.api.Download(ctx, fileID)
	if err != nil {
		reportError(err)
		return
	}

	plaintext, err := cryptox.OpenFile(sealed, passphrase, nil)
	if err != nil {
		log.Printf("error opening file (wrong passphrase?): %v", err)
		return
	}

	if err := os.WriteFile(outPath, plaintext, 0o600); err != nil {
		log.Printf("error writing file: %v", err)
		return
	}

	log.Printf("Saved %d bytes to %s\n", len(plaintext), outPath)
}

// openSharePassphrase finds the incoming grant and opens its envelope with
// the locally stored private key.
func (a *App) openSharePassphrase(ctx context.Context, shareID string) ([]byte, error) {
	privPEM, err := a.keystore.PrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	priv, err := cryptox.ParseRSAPrivateKey(privPEM)
	if err != nil {
		return nil, err
	}

	after := ""
	for {
		list, err := a.api.IncomingShares(ctx, 100, after)
		if err != nil {
			return nil, err
		}
		for _, sh := range list.Shares {
			if sh.ID == shareID {
				return cryptox.OpenPassphrase(priv, sh.EncryptedKey)
			}
		}
		if list.NextCursor == "" {
			return nil, common.ErrorNotFound
		}
		after = list.NextCursor
	}
}
