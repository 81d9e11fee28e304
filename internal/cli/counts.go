package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/terra-clan/learning-engine/internal/models"
)

// NewCountsCommand creates the counts command.
func NewCountsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print live learner counts per level",
		Example: `  learnctl counts --course go-basics
  learnctl counts --course go-basics --format json`,
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

			counts, err := c.GetLiveCounts(cmd.Context(), rootOpts.Course)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to get live counts", err)
			}

			out := printer{format: rootOpts.Format, w: cmd.OutOrStdout()}
			return out.emit(counts, func(w io.Writer) { writeCounts(w, counts) })
		},
	}
}

func writeCounts(w io.Writer, counts models.LiveCounts) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No learners online")
		return
	}

	levels := make([]string, 0, len(counts))
	for id := range counts {
		levels = append(levels, id)
	}
	sort.Strings(levels)

	for _, id := range levels {
		fmt.Fprintf(w, "%-20s %d\n", id, counts[id])
	}
}
