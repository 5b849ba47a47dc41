package cli

import (
	"context"
	"log"
	"os"

	"github.com/blockvault/blockvault/internal/client/keystore"
	"github.com/blockvault/blockvault/internal/common"
	"github.com/blockvault/blockvault/internal/cryptox"
)

const saltLen = 16

// Register creates an account. The password never leaves the machine: it is
// stretched into a master key with a fresh salt and only the salt and the
// derived verifier are sent to the server.
func (a *App) Register(ctx context.Context) {

	userName, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	salt := common.GenerateRandByteArray(saltLen)
	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)

	if err := a.api.Register(ctx, userName, salt, cryptox.MakeVerifier(masterKey)); err != nil {
		reportError(err)
		return
	}

	log.Println("Registered. You can now log in.")
}

// Login fetches the account salt, re-derives the verifier, and exchanges it
// for a token pair which is stored in the keystore.
func (a *App) Login(ctx context.Context) {

	userName, err := GetSimpleText(a.reader, "Enter user name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword("Enter password", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	defer common.WipeByteArray(password)

	salt, err := a.api.GetSalt(ctx, userName)
	if err != nil {
		reportError(err)
		return
	}

	masterKey := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(masterKey)

	pair, err := a.api.Login(ctx, userName, cryptox.MakeVerifier(masterKey))
	if err != nil {
		reportError(err)
		return
	}

	a.api.SetAccessToken(pair.AccessToken)
	a.userName = userName

	if err := a.keystore.SaveSession(ctx, &keystore.Session{
		Username:     userName,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}); err != nil {
		log.Printf("warning: session not saved: %v", err)
	}

	log.Println("Login successful")
}

func (a *App) Logout(ctx context.Context) {
	a.api.SetAccessToken("")
	a.userName = ""
	if err := a.keystore.ClearSession(ctx); err != nil {
		log.Printf("warning: %v", err)
	}
	log.Println("Logged out")
}
