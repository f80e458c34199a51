package driven

// Prompt names for PromptStore.
const (
	// PromptChatSystem is the assistant instruction placed before the knowledge context.
	PromptChatSystem = "chat_system"

	// PromptCitation tells the model how to cite knowledge fragments.
	PromptCitation = "citation"
)

// PromptStore loads user-customisable prompt templates.
type PromptStore interface {
	// Load returns the prompt text for name.
	Load(name string) (string, error)
}
