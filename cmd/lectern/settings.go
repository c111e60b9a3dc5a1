package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lectern/internal/domain"
	"lectern/internal/settings"
)

func newSettingsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()
			return renderSettings(cmd, root, services.Settings.Load(cmd.Context()))
		},
	})
	cmd.AddCommand(newSettingsSetCommand(root))
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences and forget all subjects",
		Long: `Delete the stored preferences. Saved recordings are kept; their subjects
are no longer in the subject list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx := cmd.Context()
			if err := services.Store.Delete(ctx, settings.DocumentKey); err != nil {
				return err
			}
			return renderSettings(cmd, root, services.Settings.Load(ctx))
		},
	})

	return cmd
}

func newSettingsSetCommand(root *rootOptions) *cobra.Command {
	var (
		autoSave    bool
		maxDuration string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change preferences",
		Long: `Change preferences. Only flags that are given are changed.

--max-duration is in minutes. Text that is not a positive whole number is
kept as entered and disables the limit.

Examples:
  lectern settings set --max-duration 90
  lectern settings set --autosave=true`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if !flags.Changed("autosave") && !flags.Changed("max-duration") {
				return fmt.Errorf("nothing to change; pass --autosave or --max-duration")
			}

			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			ctx := cmd.Context()
			current := services.Settings.Load(ctx)
			if flags.Changed("autosave") {
				current.AutoSaveEnabled = autoSave
			}
			if flags.Changed("max-duration") {
				current.MaxRecordingDurationMinutes = maxDuration
			}
			services.Settings.Save(ctx, current)
			return renderSettings(cmd, root, services.Settings.Load(ctx))
		},
	}

	cmd.Flags().BoolVar(&autoSave, "autosave", false, "Save processed recordings without asking")
	cmd.Flags().StringVar(&maxDuration, "max-duration", "", "Maximum recording length in minutes")
	return cmd
}

func renderSettings(cmd *cobra.Command, root *rootOptions, prefs domain.Settings) error {
	return root.render(cmd, prefs, func(w io.Writer) {
		limit := "none"
		if d, ok := prefs.MaxRecordingDuration(); ok {
			limit = d.String()
		}
		fmt.Fprintf(w, "Auto-save:         %t\n", prefs.AutoSaveEnabled)
		fmt.Fprintf(w, "Max duration:      %s (%s)\n", prefs.MaxRecordingDurationMinutes, limit)
		fmt.Fprintf(w, "Subjects:          %d\n", len(prefs.Subjects))
		fmt.Fprintf(w, "Current subject:   %s\n", orNone(prefs.CurrentSubject))
	})
}
