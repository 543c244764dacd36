package editor

// EventKind discriminates the result variants of a ReadLine call.
type EventKind int

const (
	// EventUserInput carries a submitted line of ordinary user text.
	EventUserInput EventKind = iota
	// EventExitRequest signals the user asked to leave the session.
	EventExitRequest
	// EventInterrupt signals the terminal input stream ended mid-read.
	EventInterrupt
	// EventCommandOutput carries the output of an executed registry command.
	EventCommandOutput
	// EventEngineCommand carries a command line that needs engine context.
	EventEngineCommand
)

// InputEvent is the single typed result yielded by ReadLine. Exactly one
// event is produced per call.
type InputEvent struct {
	// Kind selects the variant.
	Kind EventKind
	// Text holds the submitted line, command output, or command line.
	Text string
	// Count holds the Ctrl+C strike count for exit requests.
	Count int
}
