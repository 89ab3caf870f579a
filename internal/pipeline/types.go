package pipeline

import "time"

// Stage names a step of the per-function pipeline. Pass stages carry the
// pass name.
type Stage string

const (
	// StageBuild lowers the AST of one function.
	StageBuild Stage = "build"
	// StagePrint renders the final HIR.
	StagePrint Stage = "print"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one function. File is set by callers that
// compile several units into one sink.
type Event struct {
	File     string
	Function string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use when functions are compiled in parallel.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// ErrorKind classifies the failure of one function.
type ErrorKind uint8

const (
	ErrorNone ErrorKind = iota
	// ErrorBuild is a *hir.BuildError: unsupported or invalid input.
	ErrorBuild
	// ErrorInternal is any other failure, usually a *hir.InvariantError.
	ErrorInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "none"
	case ErrorBuild:
		return "build"
	case ErrorInternal:
		return "internal"
	default:
		return "unknown"
	}
}
