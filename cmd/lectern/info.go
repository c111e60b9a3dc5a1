package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

type documentInfo struct {
	Key       string    `json:"key"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type infoOutput struct {
	Database  string         `json:"database"`
	Documents []documentInfo `json:"documents"`
}

func newInfoCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show where the library is stored and when it last changed",
		Long: `Show the database path and every stored document with its last write time.

JSON Output:
  lectern info -o json

  Returns:
  {"database": "/home/me/.lectern/lectern.db", "documents": [{"key": "settings", "updatedAt": "..."}]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx := cmd.Context()
			keys, err := services.Store.Keys(ctx)
			if err != nil {
				return err
			}
			out := infoOutput{Database: services.Config.Storage.Path, Documents: make([]documentInfo, 0, len(keys))}
			for _, key := range keys {
				updated, ok, err := services.Store.UpdatedAt(ctx, key)
				if err != nil {
					return err
				}
				if ok {
					out.Documents = append(out.Documents, documentInfo{Key: key, UpdatedAt: updated})
				}
			}

			return root.render(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Database: %s\n", out.Database)
				if len(out.Documents) == 0 {
					fmt.Fprintln(w, "No documents stored.")
					return
				}
				for _, doc := range out.Documents {
					fmt.Fprintf(w, "  %-10s %s\n", doc.Key, doc.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
				}
			})
		},
	}
}
