package domain

// ChatRole identifies who produced a chat message
type ChatRole string

const (
	ChatRoleHuman ChatRole = "human"
	ChatRoleAI    ChatRole = "ai"
)

// ChatMessage is one prior turn of a retrieval conversation.
type ChatMessage struct {
	Role    ChatRole
	Content string
}

// Source is one citation attached to a generated answer. FileName carries
// the sentinel "Static Q&A" when the knowledge unit did not come from an
// uploaded document.
type Source struct {
	FileName   string
	Question   string
	Context    string
	DocumentID string
	PageNumber int
}

// StaticQASourceName labels sources that have no backing file.
const StaticQASourceName = "Static Q&A"
