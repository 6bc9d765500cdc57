package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// maxLogContent caps message contents written to the debug log.
const maxLogContent = 400

// NewAllCallbacks aggregates the model and prompt handlers into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLogContent {
		return s
	}
	return string(r[:maxLogContent]) + "..."
}
