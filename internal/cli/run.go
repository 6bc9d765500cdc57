package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/contentstudio/server/internal/workflow/graph"
	"github.com/contentstudio/server/internal/workflow/model"
)

func newRunCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workflow and print the result",
	}
	cmd.AddCommand(
		newRunBlogCommand(opts),
		newRunNewsCommand(opts),
		newRunScriptCommand(opts),
		newRunYouTubeBlogCommand(opts),
		newRunRepurposeCommand(opts),
	)
	return cmd
}

// invoke builds the workflows, runs one and releases them.
func invoke[I, O any](ctx context.Context, opts *options, pick func(*graph.Workflows) graph.Runner[I, O], in I) (O, error) {
	wf, release, err := opts.workflows(ctx)
	if err != nil {
		var zero O
		return zero, err
	}
	defer release()
	return pick(wf).Invoke(ctx, in)
}

func newRunBlogCommand(opts *options) *cobra.Command {
	var req model.BlogRequest
	cmd := &cobra.Command{
		Use:   "blog <topic>",
		Short: "Plan, draft, review and repurpose a blog post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Topic = args[0]
			if req.BrandVoice == "" {
				req.BrandVoice = req.BrandName
			}
			out, err := invoke(cmd.Context(), opts, func(w *graph.Workflows) graph.Runner[model.BlogRequest, *model.BlogState] { return w.Blog }, req)
			if err != nil {
				return err
			}
			text := out.Draft
			if out.SocialAssets != "" {
				text += "\n\n---\n\n" + out.SocialAssets
			}
			return opts.print(cmd, text, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.BrandName, "brand", "", "Brand name")
	f.StringVar(&req.BrandVoice, "voice", "", "Brand voice (defaults to the brand name)")
	f.StringVar(&req.Brief, "brief", "", "Existing draft or brief")
	f.StringVar(&req.Tone, "tone", "", "Tone of voice")
	f.StringVar(&req.Audience, "audience", "", "Target audience")
	f.IntVar(&req.WordCount, "words", 1000, "Blog word count")
	f.StringToIntVar(&req.Modalities, "channels", nil, "Social channels with word counts, e.g. linkedin=200,twitter=100")
	return cmd
}

func newRunNewsCommand(opts *options) *cobra.Command {
	var req model.NewsRequest
	cmd := &cobra.Command{
		Use:   "news <prompt>",
		Short: "Research and write a news article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = args[0]
			out, err := invoke(cmd.Context(), opts, func(w *graph.Workflows) graph.Runner[model.NewsRequest, *model.NewsState] { return w.News }, req)
			if err != nil {
				return err
			}
			return opts.print(cmd, out.ArticleDraft, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ThreadID, "thread", "", "Thread id to record the run under")
	f.StringVar(&req.Tone, "tone", "", "Tone of voice")
	f.StringVar(&req.Audience, "audience", "", "Target audience")
	f.StringVar(&req.AdditionalContext, "context", "", "Additional context or an existing draft")
	f.IntVar(&req.WordCount, "words", 800, "Article word count")
	return cmd
}

func newRunScriptCommand(opts *options) *cobra.Command {
	var req model.ScriptRequest
	cmd := &cobra.Command{
		Use:   "youtube-script <prompt>",
		Short: "Write and review a YouTube script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = args[0]
			req.VideoType = strings.ToLower(req.VideoType)
			if req.VideoType != model.VideoShortform && req.VideoType != model.VideoLongform {
				return fmt.Errorf("--type must be %s or %s", model.VideoShortform, model.VideoLongform)
			}
			out, err := invoke(cmd.Context(), opts, func(w *graph.Workflows) graph.Runner[model.ScriptRequest, *model.ScriptState] { return w.Script }, req)
			if err != nil {
				return err
			}
			return opts.print(cmd, out.ScriptDraft, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ChannelDescription, "channel", "", "Channel description")
	f.StringVar(&req.Subscribers, "subscribers", "", "Subscriber count")
	f.StringVar(&req.VideoType, "type", model.VideoShortform, "Video type: shortform or longform")
	f.StringVar(&req.Tone, "tone", "", "Tone of voice")
	f.StringVar(&req.Audience, "audience", "", "Target audience")
	return cmd
}

func newRunYouTubeBlogCommand(opts *options) *cobra.Command {
	var req model.YouTubeBlogRequest
	cmd := &cobra.Command{
		Use:   "youtube-blog <url>",
		Short: "Turn a YouTube video into a blog post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.URL = args[0]
			out, err := invoke(cmd.Context(), opts, func(w *graph.Workflows) graph.Runner[model.YouTubeBlogRequest, *model.YouTubeBlogState] { return w.YouTubeBlog }, req)
			if err != nil {
				return err
			}
			return opts.print(cmd, out.BlogPost+"\n\n---\n\n"+out.Summary, out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Prompt, "prompt", "", "Extra instructions for the writer")
	f.IntVar(&req.WordCount, "words", graph.DefaultYouTubeWordCount, "Blog word count (200-2000)")
	return cmd
}

func newRunRepurposeCommand(opts *options) *cobra.Command {
	var (
		req  model.RepurposeRequest
		file string
	)
	cmd := &cobra.Command{
		Use:   "repurpose",
		Short: "Repurpose an article into a summary, social posts, FAQ and entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				req.ArticleText = string(b)
			}
			out, err := invoke(cmd.Context(), opts, func(w *graph.Workflows) graph.Runner[model.RepurposeRequest, *model.RepurposeState] { return w.Repurpose }, req)
			if err != nil {
				return err
			}
			return opts.print(cmd, formatRepurposed(out.Content), out.Content)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.ArticleURL, "url", "", "Article URL to fetch")
	f.StringVar(&file, "file", "", "Read the article text from a file")
	cmd.MarkFlagsOneRequired("url", "file")
	return cmd
}

func formatRepurposed(c *model.RepurposedContent) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", c.Summary)
	fmt.Fprintf(&b, "## Social posts\n\nTwitter: %s\n\nLinkedIn: %s\n\nInstagram: %s\n\n",
		c.SocialPosts.Twitter, c.SocialPosts.LinkedIn, c.SocialPosts.Instagram)
	fmt.Fprintf(&b, "## FAQ\n\n%s\n\n", c.FAQSection)
	fmt.Fprintf(&b, "## Entities\n\nPeople: %s\nOrganizations: %s\nTopics: %s",
		strings.Join(c.Entities.People, ", "),
		strings.Join(c.Entities.Organizations, ", "),
		strings.Join(c.Entities.Topics, ", "))
	return b.String()
}
