package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultAnswerPrompt instructs the generator to answer only from the context.
// The first %s receives the context, the second the question.
const DefaultAnswerPrompt = `Use the following context to answer the question.
If you don't know the answer, just say that you don't know. Do not make up an answer.

Context:
%s

Question: %s

Answer:`

// contextSeparator joins retrieved chunks inside the prompt.
const contextSeparator = "\n\n"

// BuildPrompt renders the answer prompt. Context passages keep their order.
// A template without exactly two %s placeholders falls back to DefaultAnswerPrompt.
func BuildPrompt(template string, contexts []string, question string) string {
	if strings.Count(template, "%s") != 2 {
		template = DefaultAnswerPrompt
	}
	return fmt.Sprintf(template, strings.Join(contexts, contextSeparator), question)
}

// loadAnswerTemplate reads the answer template from the prompt store.
func loadAnswerTemplate(store driven.PromptStore) string {
	if store == nil {
		return DefaultAnswerPrompt
	}

	template, err := store.Load(driven.PromptAnswer)
	if err != nil || strings.TrimSpace(template) == "" {
		if err != nil {
			logger.Debug("Answer prompt unavailable, using default: %v", err)
		}
		return DefaultAnswerPrompt
	}
	if strings.Count(template, "%s") != 2 {
		logger.Warn("Answer prompt must contain two %%s placeholders (context, question); using default")
		return DefaultAnswerPrompt
	}
	return template
}
