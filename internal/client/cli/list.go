package cli

import (
	"context"
	"fmt"
	"log"
)

// List prints the user's files page by page.
func (a *App) List(ctx context.Context) {

	after := ""
	total := 0
	for {
		list, err := a.api.ListFiles(ctx, 50, after)
		if err != nil {
			reportError(err)
			return
		}

		for _, f := range list.Files {
			anchor := f.AnchorRef
			if anchor == "" {
				anchor = "-"
			}
			folder := f.Folder
			if folder == "" {
				folder = "-"
			}
			fmt.Printf("%s  %-30s  %-15s  %8d bytes  anchor: %s\n", f.ID, f.Name, folder, f.SizeBytes, anchor)
			total++
		}

		if list.NextCursor == "" {
			break
		}
		after = list.NextCursor
	}

	log.Printf("%d file(s)\n", total)
}
