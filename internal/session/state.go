// Package session owns the upload lifecycle for one user session: the held
// replay file, the request in flight, the analysis result, and the text
// derived from it. All transitions go through Reduce.
package session

import (
	"errors"
	"fmt"
	"io"

	"sc2summariser/internal/analysis"
	"sc2summariser/internal/replay"
)

// Phase is the lifecycle position of the session
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseFileSelected Phase = "file_selected"
	PhaseUploading    Phase = "uploading"
	PhaseSuccess      Phase = "success"
	PhaseError        Phase = "error"
)

// User-facing notice and error text
const (
	MsgTooLarge         = "File size must be less than 1MB. Please upload a smaller file."
	MsgWrongExtension   = "Please select a valid Starcraft 2 replay file."
	MsgNoFile           = "Please select a file before uploading."
	MsgUploadInProgress = "An upload is already in progress."
	MsgUploadSuccessful = "Upload successful!"
	MsgNoPlayer         = "Please select a player."
	MsgNoResult         = "Upload a replay before selecting a player."
	MsgSummaryCopied    = "Summary info copied to clipboard!"
	MsgPromptCopied     = "Prompt copied to clipboard!"
	MsgNothingToCopy    = "Nothing to copy yet. Upload a replay first."
	MsgClipboardFailed  = "Could not access the clipboard."
	MsgRequestFailed    = "Request failed. Please try again."
	MsgSomethingWrong   = "Something went wrong."
	MsgNoSummary        = "Upload a replay first."
	MsgFeedbackReady    = "Coach feedback ready!"
	MsgFeedbackFailed   = "Could not get coach feedback."
	MsgShared           = "Summary shared to Discord!"
	MsgShareFailed      = "Could not share to Discord."
	MsgNotConfigured    = "This feature is not configured."
)

var (
	ErrUnsupportedGameType = errors.New("unsupported game type")
	ErrUploadInProgress    = errors.New("upload already in progress")
	ErrNoFile              = errors.New("no replay selected")
	ErrNoPlayer            = errors.New("no player selected")
	ErrNothingToCopy       = errors.New("nothing to copy")
	ErrNoResult            = errors.New("no analysis result")
	ErrNotConfigured       = errors.New("feature not configured")
)

// File is a replay chosen by the user. Open returns a fresh reader over the
// file content each time it is called.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Notice is a transient message. IDs increase so an expiry timer only clears
// the notice it was armed for.
type Notice struct {
	ID   uint64
	Text string
}

// State is the complete session record
type State struct {
	Rules replay.Rules

	Phase   Phase
	File    *File
	Attempt uint64
	Slow    bool

	Data     *replay.SummarisedData
	Source   string // file name the result came from
	Selected *int
	Summary  string
	Prompt   string
	Feedback string // coach reply for Prompt

	Error  string
	Notice Notice
}

// NewState returns an idle session using rules for file validation
func NewState(rules replay.Rules) State {
	return State{Rules: rules, Phase: PhaseIdle}
}

// Event is an input to Reduce
type Event interface {
	event()
}

type (
	// FileChosen is a file picked by the user, not yet validated
	FileChosen struct{ File File }
	// UploadRequested is the upload trigger
	UploadRequested struct{}
	// UploadSlow fires when attempt has been in flight past the slow threshold
	UploadSlow struct{ Attempt uint64 }
	// UploadSucceeded carries a 200 response for attempt
	UploadSucceeded struct {
		Attempt uint64
		Data    *replay.SummarisedData
	}
	// UploadFailed carries the transport or status error for attempt
	UploadFailed struct {
		Attempt uint64
		Err     error
	}
	// PlayerSelected picks the viewer; nil means the selection was cleared
	PlayerSelected struct{ ID *int }
	// Copied reports a successful clipboard write
	Copied struct{ Target CopyTarget }
	// CopyFailed reports a clipboard error
	CopyFailed struct{}
	// NothingToCopy is a copy request with no derived text
	NothingToCopy struct{}
	// Reset returns the session to idle
	Reset struct{}
	// NoticeExpired dismisses notice ID if it is still showing
	NoticeExpired struct{ ID uint64 }
	// HistoryOpened restores an earlier result from this session
	HistoryOpened struct {
		Name string
		Data *replay.SummarisedData
	}
	// FeedbackReceived carries the coach reply for Prompt
	FeedbackReceived struct {
		Prompt string
		Text   string
	}
	// Announced shows a notice without touching anything else
	Announced struct{ Text string }
)

func (FileChosen) event()       {}
func (UploadRequested) event()  {}
func (UploadSlow) event()       {}
func (UploadSucceeded) event()  {}
func (UploadFailed) event()     {}
func (PlayerSelected) event()   {}
func (Copied) event()           {}
func (CopyFailed) event()       {}
func (NothingToCopy) event()    {}
func (Reset) event()            {}
func (NoticeExpired) event()    {}
func (HistoryOpened) event()    {}
func (FeedbackReceived) event() {}
func (Announced) event()        {}

// CopyTarget names which derived text was copied
type CopyTarget string

const (
	CopySummary CopyTarget = "summary"
	CopyPrompt  CopyTarget = "prompt"
)

// Reduce applies ev to s and returns the next state. It has no side effects;
// the Orchestrator runs timers and requests based on the difference between
// the two states.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case FileChosen:
		return chooseFile(s, e.File)

	case UploadRequested:
		switch {
		case s.Phase == PhaseUploading:
			return s.withNotice(MsgUploadInProgress)
		case s.File == nil:
			return s.withNotice(MsgNoFile)
		}
		s = s.clearResult()
		s.Phase = PhaseUploading
		s.Attempt++
		s.Slow = false
		s.Error = ""
		return s

	case UploadSlow:
		if s.inFlight(e.Attempt) {
			s.Slow = true
		}
		return s

	case UploadSucceeded:
		if !s.inFlight(e.Attempt) {
			return s
		}
		if e.Data == nil {
			return fail(s, fmt.Errorf("%w: empty response", analysis.ErrTransport))
		}
		if e.Data.GameType != replay.SupportedGameType {
			return fail(s, &UnsupportedGameTypeError{GameType: e.Data.GameType})
		}
		s.Slow = false
		source := ""
		if s.File != nil {
			source = s.File.Name
		}
		s = s.showResult(source, e.Data)
		return s.withNotice(MsgUploadSuccessful)

	case UploadFailed:
		if !s.inFlight(e.Attempt) {
			return s
		}
		return fail(s, e.Err)

	case PlayerSelected:
		if s.Phase != PhaseSuccess || s.Data == nil {
			return s.withNotice(MsgNoResult)
		}
		if e.ID == nil {
			return s.withNotice(MsgNoPlayer)
		}
		if _, ok := s.Data.Player(*e.ID); !ok {
			return s.withNotice(MsgNoPlayer)
		}
		id := *e.ID
		s.Selected = &id
		s.Summary = replay.BuildSummary(*s.Data, s.Selected)
		s.Prompt = replay.BuildPrompt(*s.Data, s.Selected)
		s.Feedback = ""
		return s

	case Copied:
		if e.Target == CopyPrompt {
			return s.withNotice(MsgPromptCopied)
		}
		return s.withNotice(MsgSummaryCopied)

	case CopyFailed:
		return s.withNotice(MsgClipboardFailed)

	case NothingToCopy:
		return s.withNotice(MsgNothingToCopy)

	case Reset:
		next := NewState(s.Rules)
		// Keep counters moving so late timers and responses stay stale.
		next.Attempt = s.Attempt + 1
		next.Notice.ID = s.Notice.ID
		return next

	case NoticeExpired:
		if s.Notice.ID == e.ID {
			s.Notice.Text = ""
		}
		return s

	case HistoryOpened:
		if s.Phase == PhaseUploading {
			return s.withNotice(MsgUploadInProgress)
		}
		if e.Data == nil {
			return s
		}
		s.File = nil
		s.Error = ""
		return s.showResult(e.Name, e.Data)

	case FeedbackReceived:
		// A reply for a prompt that is no longer shown is dropped.
		if s.Phase != PhaseSuccess || s.Prompt != e.Prompt {
			return s
		}
		s.Feedback = e.Text
		return s.withNotice(MsgFeedbackReady)

	case Announced:
		return s.withNotice(e.Text)
	}

	return s
}

func chooseFile(s State, f File) State {
	if err := replay.Validate(f.Size, f.Name, s.Rules); err != nil {
		// The file in flight stays; it names the result when it lands.
		if s.Phase != PhaseUploading {
			s.File = nil
		}
		var verr *replay.ValidationError
		if errors.As(err, &verr) && verr.Reason == replay.ReasonTooLarge {
			return s.withNotice(MsgTooLarge)
		}
		return s.withNotice(MsgWrongExtension)
	}

	if s.Phase == PhaseUploading {
		// A new selection abandons the request in flight.
		s.Attempt++
	}
	s = s.clearResult()
	s.Phase = PhaseFileSelected
	s.File = &f
	s.Slow = false
	s.Error = ""
	return s
}

func fail(s State, err error) State {
	s = s.clearResult()
	s.Phase = PhaseError
	s.Slow = false
	s.Error = FailureMessage(err)
	return s
}

// FailureMessage maps an upload error to the text shown to the user. Raw
// error content is never included, except the game type, which comes from
// the analysis result rather than from an error.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedGameType):
		return fmt.Sprintf("Unsupported game type: %s. Only 1v1 replays are supported.", gameTypeOf(err))
	case errors.Is(err, analysis.ErrRequestFailed):
		return MsgRequestFailed
	default:
		return MsgSomethingWrong
	}
}

func gameTypeOf(err error) string {
	var gt *UnsupportedGameTypeError
	if errors.As(err, &gt) {
		return gt.GameType
	}
	return "unknown"
}

// UnsupportedGameTypeError rejects a result that is not a 1v1 game
type UnsupportedGameTypeError struct {
	GameType string
}

func (e *UnsupportedGameTypeError) Error() string {
	return fmt.Sprintf("unsupported game type %q", e.GameType)
}

func (e *UnsupportedGameTypeError) Unwrap() error {
	return ErrUnsupportedGameType
}

func (s State) inFlight(attempt uint64) bool {
	return s.Phase == PhaseUploading && s.Attempt == attempt
}

func (s State) withNotice(text string) State {
	s.Notice = Notice{ID: s.Notice.ID + 1, Text: text}
	return s
}

func (s State) clearResult() State {
	s.Data = nil
	s.Source = ""
	s.Selected = nil
	s.Summary = ""
	s.Prompt = ""
	s.Feedback = ""
	return s
}

func (s State) showResult(source string, data *replay.SummarisedData) State {
	s.Phase = PhaseSuccess
	s.Data = data
	s.Source = source
	s.Selected = nil
	s.Summary = replay.BuildSummary(*data, nil)
	s.Prompt = replay.BuildPrompt(*data, nil)
	s.Feedback = ""
	return s
}
