package replay

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// SupportedGameType is the only game type the summariser accepts
const SupportedGameType = "1v1"

// PlayerStats describes one match participant
type PlayerStats struct {
	PlayerID int    `json:"player_id"`
	Name     string `json:"name"`
	Race     string `json:"race"`
	IsHuman  bool   `json:"is_human"`
	Team     int    `json:"team"`
	Result   string `json:"result"`
	Color    string `json:"color"` // cosmetic, not rendered
}

// CommandEvent is a single in-game action of interest
type CommandEvent struct {
	AbilityName string `json:"ability_name"`
	Player      int    `json:"player"`
	Frame       int    `json:"frame"`
	Second      int    `json:"second"`
}

// SummarisedData is the analysis service response for one replay
type SummarisedData struct {
	Map       string         `json:"map"`
	Players   []PlayerStats  `json:"players"`
	Duration  int            `json:"duration"`
	GameType  string         `json:"game_type"`
	Build     Text           `json:"build"`
	Expansion Text           `json:"expansion"`
	Speed     Text           `json:"speed"`
	Commands  []CommandEvent `json:"commands"`
}

// Player returns the roster entry for id, if present
func (d *SummarisedData) Player(id int) (PlayerStats, bool) {
	for _, p := range d.Players {
		if p.PlayerID == id {
			return p, true
		}
	}
	return PlayerStats{}, false
}

// Text is a passthrough metadata string. sc2reader reports some of these
// fields (build in particular) as numbers, so numbers are kept as their
// literal text.
type Text string

// UnmarshalJSON accepts a JSON string, number, or null
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("replay: cannot decode %s as text", b)
	}
	*t = Text(b)
	return nil
}

func (t Text) String() string {
	return string(t)
}
