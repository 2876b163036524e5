package state

// UserState is the step of a multi-message dialog a chat is in.
type UserState string

const (
	StateNone UserState = ""

	// StateAwaitingRejectReason waits for the text of a rejection reason.
	StateAwaitingRejectReason UserState = "awaiting_reject_reason"
)

// Dialog is the in-progress conversation of one chat.
type Dialog struct {
	State     UserState
	BookingID int64
	// PromptChatID and PromptMessageID locate the message whose buttons
	// started the dialog, so it can be updated once the dialog completes.
	PromptChatID    int64
	PromptMessageID int
}
