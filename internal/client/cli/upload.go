package cli

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
)

// Upload seals a local file with a passphrase and sends the ciphertext. The
// hash and size recorded on the server describe the plaintext; the server
// itself only ever sees the sealed bytes.
func (a *App) Upload(ctx context.Context) {

	path, err := GetSimpleText(a.reader, "Enter file path", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	plaintext, err := os.ReadFile(path)
	if err != nil {
		log.Printf("error reading file: %v", err)
		return
	}

	passphrase, err := GetPassword("Enter file passphrase", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(passphrase)

	name := filepath.Base(path)
	sealed, err := cryptox.SealFile(plaintext, passphrase, nil)
	if err != nil {
		log.Printf("error sealing file: %v", err)
		return
	}

	file, err := a.api.Upload(ctx, name, sealed, cryptox.Sha256Hex(plaintext), int64(len(plaintext)))
	if err != nil {
		reportError(err)
		return
	}

	log.Printf("Uploaded %s (id %s)\n", file.Name, file.ID)
}
