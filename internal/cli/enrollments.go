package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/terra-clan/learning-engine/internal/models"
)

// NewEnrollmentsCommand creates the enrollments command.
func NewEnrollmentsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enrollments",
		Short: "List learners enrolled in a course with their progress",
		Example: `  learnctl enrollments --course go-basics
  learnctl enrollments --course go-basics --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.requireCourse(); err != nil {
				return err
			}
			c, err := rootOpts.client()
			if err != nil {
				return err
			}

			enrollments, err := c.ListEnrollments(cmd.Context(), rootOpts.Course)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list enrollments", err)
			}

			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.emit(enrollments, func(w io.Writer) { writeEnrollments(w, enrollments) })
		},
	}
}

func writeEnrollments(w io.Writer, enrollments []*models.Enrollment) {
	if len(enrollments) == 0 {
		fmt.Fprintln(w, "No enrollments")
		return
	}
	fmt.Fprintf(w, "%-28s %8s %7s %7s\n", "STUDENT", "PROGRESS", "TOPICS", "LEVELS")
	for _, e := range enrollments {
		fmt.Fprintf(w, "%-28s %7d%% %7d %7d\n", e.StudentID, e.Progress, len(e.CompletedTopics), len(e.CompletedLevels))
	}
}
