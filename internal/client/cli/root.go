package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to BlockVault CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("bv %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: (l)ist, upload, download, rename, move, folders, verify, share, shares, revoke, keygen, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}

		case "register":
			a.Register(ctx)
		case "login":
			a.Login(ctx)
		case "keygen":
			a.Keygen(ctx)
		case "upload":
			a.Upload(ctx)
		case "download":
			a.Download(ctx)
		case "l", "list":
			a.List(ctx)
		case "rename":
			a.Rename(ctx)
		case "move":
			a.Move(ctx)
		case "folders":
			a.Folders(ctx)
		case "verify":
			a.Verify(ctx)
		case "share":
			a.Share(ctx)
		case "shares":
			a.Shares(ctx)
		case "revoke":
			a.Revoke(ctx)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
