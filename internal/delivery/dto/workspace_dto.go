package dto

// Workspace socket message types
const (
	WorkspaceMessageState = "state"
	WorkspaceMessageError = "error"

	WorkspaceActionLookup = "lookup"
	WorkspaceActionSelect = "select"
)

// WorkspaceMessage is pushed to the screen
type WorkspaceMessage struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// WorkspaceCommand is sent by the screen. Prefix is used by lookup and
// Phone by select.
type WorkspaceCommand struct {
	Action string `json:"action"`
	Prefix string `json:"prefix,omitempty"`
	Phone  string `json:"phone,omitempty"`
}
