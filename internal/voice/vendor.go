package voice

import "context"

type EventName string

const (
	EventCallStart   EventName = "call-start"
	EventCallEnd     EventName = "call-end"
	EventSpeechStart EventName = "speech-start"
	EventSpeechEnd   EventName = "speech-end"
	EventMessage     EventName = "message"
	EventError       EventName = "error"
)

var AllEventNames = []EventName{
	EventCallStart,
	EventCallEnd,
	EventSpeechStart,
	EventSpeechEnd,
	EventMessage,
	EventError,
}

const (
	MessageTypeTranscript = "transcript"

	TranscriptTypePartial = "partial"
	TranscriptTypeFinal   = "final"
)

type VendorMessage struct {
	Type           string `json:"type"`
	TranscriptType string `json:"transcriptType,omitempty"`
	Role           string `json:"role,omitempty"`
	Transcript     string `json:"transcript,omitempty"`
}

type VendorEvent struct {
	Name    EventName
	Message *VendorMessage
	Err     error
}

// Listener implementations must be comparable so Off can find them.
type Listener interface {
	Handle(event VendorEvent)
}

type VariableValues struct {
	Questions  string `json:"questions"`
	Transcript string `json:"transcript"`
}

type StartOptions struct {
	VariableValues VariableValues `json:"variableValues"`
}

// Vendor is the realtime voice provider.
type Vendor interface {
	Start(ctx context.Context, assistant AssistantConfig, opts StartOptions) error
	Stop(ctx context.Context) error
	SetMuted(muted bool) error
	On(name EventName, l Listener)
	Off(name EventName, l Listener)
}
