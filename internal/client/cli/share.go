package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/blockvault/blockvault/internal/common"
)

// Share grants another user access to one of the caller's files. The file
// passphrase is re-entered here and travels to the server only to be sealed
// under the recipient's public key.
func (a *App) Share(ctx context.Context) {

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	recipient, err := GetSimpleText(a.reader, "Enter recipient user name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	passphrase, err := GetPassword("Enter file passphrase", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(passphrase)

	note, err := GetSimpleText(a.reader, "Note (optional)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	days, err := GetSimpleText(a.reader, "Expires in days (empty for no expiry)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var expiresAt *time.Time
	if days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			log.Println("Expiry must be a positive number of days")
			return
		}
		t := time.Now().AddDate(0, 0, n)
		expiresAt = &t
	}

	share, err := a.api.CreateShare(ctx, fileID, recipient, passphrase, note, expiresAt)
	if err != nil {
		reportError(err)
		return
	}

	log.Printf("Shared (grant id %s)\n", share.ID)
}

// Shares prints incoming grants followed by the outgoing history.
func (a *App) Shares(ctx context.Context) {

	fmt.Println("Incoming:")
	incoming, err := a.api.IncomingShares(ctx, 50, "")
	if err != nil {
		reportError(err)
		return
	}
	if len(incoming.Shares) == 0 {
		fmt.Println("  (none)")
	}
	for _, sh := range incoming.Shares {
		fmt.Printf("  %s  file %s  from %s  %s\n", sh.ID, sh.FileID, sh.OwnerID, formatShareTail(sh.Note, sh.Status, sh.ExpiresAt))
	}

	fmt.Println("Outgoing:")
	outgoing, err := a.api.OutgoingShares(ctx, 50, "")
	if err != nil {
		reportError(err)
		return
	}
	if len(outgoing.Shares) == 0 {
		fmt.Println("  (none)")
	}
	for _, sh := range outgoing.Shares {
		fmt.Printf("  %s  file %s  to %s  %s\n", sh.ID, sh.FileID, sh.RecipientID, formatShareTail(sh.Note, sh.Status, sh.ExpiresAt))
	}
}

func formatShareTail(note, status string, expiresAt *time.Time) string {
	tail := "[" + status + "]"
	if expiresAt != nil {
		tail += " expires " + expiresAt.Format("2006-01-02")
	}
	if note != "" {
		tail += " " + note
	}
	return tail
}

// Revoke terminally deactivates an outgoing grant.
func (a *App) Revoke(ctx context.Context) {

	shareID, err := GetSimpleText(a.reader, "Enter share id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if err := a.api.RevokeShare(ctx, shareID); err != nil {
		reportError(err)
		return
	}

	log.Println("Revoked")
}
