package voice

import "github.com/foxseedlab/mensetsu/internal/transcript"

type EventKind string

const (
	KindCallStarted       EventKind = "call_started"
	KindCallEnded         EventKind = "call_ended"
	KindSpeechStarted     EventKind = "speech_started"
	KindSpeechEnded       EventKind = "speech_ended"
	KindTranscriptPartial EventKind = "transcript_partial"
	KindTranscriptFinal   EventKind = "transcript_final"
	KindError             EventKind = "error"
)

type Event struct {
	Kind EventKind
	Turn *transcript.Turn
	Err  error
}
