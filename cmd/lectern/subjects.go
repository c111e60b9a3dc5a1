package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lectern/internal/domain"
	"lectern/internal/ports"
)

func newSubjectsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subjects",
		Aliases: []string{"subject", "classes"},
		Short:   "Manage the subjects recordings are filed under",
		Long: `Manage the subject list. Names are trimmed; adding a subject that already
exists (exact, case-sensitive match) does nothing. Removing the selected
subject clears the selection.

JSON Output:
  lectern subjects list -o json

  Returns:
  {"subjects": ["Biology", "Math"], "current": "Biology"}`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSettings(cmd, root, func(ctx context.Context, s ports.SettingsStore) domain.Settings { return s.Load(ctx) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, root, func(ctx context.Context, s ports.SettingsStore) domain.Settings { return s.AddSubject(ctx, args[0]) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSettings(cmd, root, func(ctx context.Context, s ports.SettingsStore) domain.Settings { return s.RemoveSubject(ctx, args[0]) })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "select [name]",
		Short: "Select the current subject (no name clears the selection)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return withSettings(cmd, root, func(ctx context.Context, s ports.SettingsStore) domain.Settings { return s.SelectSubject(ctx, name) })
		},
	})

	return cmd
}

type subjectsOutput struct {
	Subjects []string `json:"subjects"`
	Current  string   `json:"current"`
}

func withSettings(cmd *cobra.Command, root *rootOptions, fn func(context.Context, ports.SettingsStore) domain.Settings) error {
	services, _, err := root.open(cmd)
	if err != nil {
		return err
	}
	defer services.Close()

	settings := fn(cmd.Context(), services.Settings)
	out := subjectsOutput{Subjects: settings.Subjects, Current: settings.CurrentSubject}
	return root.render(cmd, out, func(w io.Writer) {
		if len(out.Subjects) == 0 {
			fmt.Fprintln(w, "No subjects yet. Add one with: lectern subjects add <name>")
			return
		}
		for _, name := range out.Subjects {
			marker := " "
			if name == out.Current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s\n", marker, name)
		}
	})
}
