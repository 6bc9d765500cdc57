package prompts

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// Name identifies an embedded template under template/.
type Name string

const (
	BlogProjectPlan       Name = "blog_project_plan"
	BlogStrategyResearch  Name = "blog_strategy_research"
	BlogDraft             Name = "blog_draft"
	BlogComplianceReview  Name = "blog_compliance_review"
	BlogEditorFeedback    Name = "blog_editor_feedback"
	BlogRepurposeAssets   Name = "blog_repurpose_assets"
	NewsDraftArticle      Name = "news_draft_article"
	NewsComplianceReview  Name = "news_compliance_review"
	NewsRevisionStep      Name = "news_revision_step"
	ScriptTopicResearch   Name = "script_topic_research"
	ScriptGenerate        Name = "script_generate"
	ScriptComplianceCheck Name = "script_compliance_review"
	ScriptRevisionStep    Name = "script_revision_step"
	VisualPlatformPost    Name = "visual_platform_post"
	YouTubeBlogSystem     Name = "youtube_blog_system"
	YouTubeBlogWrite      Name = "youtube_blog_write"
	YouTubeBlogSummarize  Name = "youtube_blog_summarize"
	RepurposeArticle      Name = "repurpose_article"
)

//go:embed template/*.txt
var templateFS embed.FS

// Text returns the raw template text.
func Text(name Name) (string, error) {
	b, err := templateFS.ReadFile("template/" + string(name) + ".txt")
	if err != nil {
		return "", fmt.Errorf("unknown prompt %q: %w", name, err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

// Render formats the template as a single user message through the eino
// prompt component, so prompt callbacks observe every render.
func Render(ctx context.Context, name Name, vars map[string]any) ([]*schema.Message, error) {
	return render(ctx, "", name, vars)
}

// RenderWithSystem prepends the system template to the user template.
func RenderWithSystem(ctx context.Context, system, user Name, vars map[string]any) ([]*schema.Message, error) {
	return render(ctx, system, user, vars)
}

func render(ctx context.Context, system, user Name, vars map[string]any) ([]*schema.Message, error) {
	var templates []schema.MessagesTemplate
	if system != "" {
		sys, err := Text(system)
		if err != nil {
			return nil, err
		}
		templates = append(templates, schema.SystemMessage(sys))
	}
	body, err := Text(user)
	if err != nil {
		return nil, err
	}
	templates = append(templates, schema.UserMessage(body))

	tpl := prompt.FromMessages(schema.GoTemplate, templates...)
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("%s prompt render: %w", user, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s prompt render: empty result", user)
	}
	return msgs, nil
}
