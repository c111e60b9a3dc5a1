package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lectern/internal/usecase"
)

func newTestPrepCommand(root *rootOptions) *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:   "testprep <subject>",
		Short: "Generate a test preparation guide for a subject",
		Long: `Generate key concepts, formulas, study strategies and common questions
for a subject. Items are cleaned of markdown markers and capitalised.

Examples:
  lectern testprep Physics
  lectern testprep "Organic Chemistry" --level "High School" -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, _, err := root.open(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			prep, err := services.TestPrep.Lookup(cmd.Context(), args[0], level)
			if err != nil {
				return err
			}
			return root.render(cmd, prep, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", prep.Subject, prep.Level)
				printList(w, "Key concepts", prep.KeyConcepts)
				printList(w, "Formulas", prep.Formulas)
				printList(w, "Study strategies", prep.StudyStrategies)
				printList(w, "Common questions", prep.CommonQuestions)
			})
		},
	}

	cmd.Flags().StringVarP(&level, "level", "l", usecase.DefaultLevel, "Academic level")
	return cmd
}
