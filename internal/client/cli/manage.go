package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Rename changes a file's display name. The stored ciphertext is untouched.
func (a *App) Rename(ctx context.Context) {

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	name, err := GetSimpleText(a.reader, "New name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if name == "" {
		log.Println("Name must not be empty")
		return
	}

	file, err := a.api.UpdateFile(ctx, fileID, &name, nil)
	if err != nil {
		reportError(err)
		return
	}
	log.Printf("Renamed to %s\n", file.Name)
}

// Move puts a file into a folder, or takes it out when the folder is left
// empty.
func (a *App) Move(ctx context.Context) {

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	folder, err := GetSimpleText(a.reader, "Folder (empty to unfile)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	file, err := a.api.UpdateFile(ctx, fileID, nil, &folder)
	if err != nil {
		reportError(err)
		return
	}
	if file.Folder == "" {
		log.Printf("%s is now unfiled\n", file.Name)
	} else {
		log.Printf("%s moved to %s\n", file.Name, file.Folder)
	}
}

// Folders lists the user's folder names.
func (a *App) Folders(ctx context.Context) {

	folders, err := a.api.ListFolders(ctx)
	if err != nil {
		reportError(err)
		return
	}
	if len(folders) == 0 {
		fmt.Println("(no folders)")
		return
	}
	for _, f := range folders {
		fmt.Println(f)
	}
}

// Verify asks the server whether the ciphertext blob behind a file record is
// still in object storage.
func (a *App) Verify(ctx context.Context) {

	fileID, err := GetSimpleText(a.reader, "Enter file id", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	res, err := a.api.VerifyFile(ctx, fileID)
	if err != nil {
		reportError(err)
		return
	}

	blob := "missing"
	if res.HasBlob {
		blob = "present"
	}
	anchor := res.AnchorRef
	if anchor == "" {
		anchor = "-"
	}
	fmt.Printf("%s  blob: %s  sha256: %s  anchor: %s\n", res.FileID, blob, res.Sha256, anchor)
}
