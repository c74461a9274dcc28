package session

import (
	"fmt"

	"sc2summariser/internal/replay"
)

// PlayerOption is one entry of the player selection control
type PlayerOption struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Snapshot is the render-ready view of a State
type Snapshot struct {
	Phase          Phase          `json:"phase"`
	Loading        bool           `json:"loading"`
	Slow           bool           `json:"slow"`
	Notice         string         `json:"notice"`
	NoticeID       uint64         `json:"noticeId"`
	Error          string         `json:"error"`
	FileName       string         `json:"fileName"`
	Source         string         `json:"source"`
	Map            string         `json:"map"`
	Duration       string         `json:"duration"`
	Summary        string         `json:"summary"`
	Prompt         string         `json:"prompt"`
	Feedback       string         `json:"feedback"`
	Players        []PlayerOption `json:"players"`
	SelectedPlayer *int           `json:"selectedPlayer"`
	CanUpload      bool           `json:"canUpload"`
	CanCopy        bool           `json:"canCopy"`
}

// Snapshot renders the observable outputs of s
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:     s.Phase,
		Loading:   s.Phase == PhaseUploading,
		Slow:      s.Phase == PhaseUploading && s.Slow,
		Notice:    s.Notice.Text,
		NoticeID:  s.Notice.ID,
		Error:     s.Error,
		Source:    s.Source,
		Summary:   s.Summary,
		Prompt:    s.Prompt,
		Feedback:  s.Feedback,
		Players:   []PlayerOption{},
		CanUpload: s.File != nil && s.Phase != PhaseUploading,
		CanCopy:   s.Summary != "" && s.Prompt != "",
	}

	if s.File != nil {
		snap.FileName = s.File.Name
	}
	if s.Selected != nil {
		id := *s.Selected
		snap.SelectedPlayer = &id
	}
	if s.Data != nil {
		snap.Map = s.Data.Map
		snap.Duration = replay.FormatSeconds(s.Data.Duration)
		for _, p := range s.Data.Players {
			snap.Players = append(snap.Players, PlayerOption{
				ID:    p.PlayerID,
				Label: fmt.Sprintf("%s (%s)", p.Name, p.Race),
			})
		}
	}

	return snap
}
