package cli

import (
	"github.com/spf13/cobra"

	"github.com/contentstudio/server/internal/transcript"
)

func newTranscriptCommand(opts *options) *cobra.Command {
	var maxChars int
	cmd := &cobra.Command{
		Use:   "transcript <youtube-url>",
		Short: "Print the transcript of a YouTube video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := transcript.ExtractVideoID(args[0])
			if err != nil {
				return err
			}
			video, err := transcript.NewService(opts.cfg.Transcript).Fetch(cmd.Context(), id)
			if err != nil {
				return err
			}
			return opts.print(cmd, transcript.ToText(video.Segments, maxChars), video)
		},
	}
	cmd.Flags().IntVar(&maxChars, "max-chars", 0, "Cap the transcript length (0 prints everything)")
	return cmd
}
