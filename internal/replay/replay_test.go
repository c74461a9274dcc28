package replay

import (
	"errors"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// ladderMatch is the Alice vs Bob fixture used across the summary tests
func ladderMatch() SummarisedData {
	return SummarisedData{
		Map:      "Ladder",
		Duration: 125,
		GameType: "1v1",
		Players: []PlayerStats{
			{PlayerID: 1, Name: "Alice", Race: "Terran", IsHuman: true, Result: "Win"},
			{PlayerID: 2, Name: "Bob", Race: "Zerg", IsHuman: false, Result: "Loss"},
		},
		Commands: []CommandEvent{
			{Player: 1, Second: 65, AbilityName: "Build Barracks"},
		},
	}
}

func TestValidate(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name   string
		size   int64
		file   string
		reason Reason
	}{
		{"accepts replay at limit", DefaultMaxSize, "game.SC2Replay", ""},
		{"accepts small replay", 10, "a.SC2Replay", ""},
		{"too large wins over good extension", 2000000, "game.SC2Replay", ReasonTooLarge},
		{"too large wins over bad extension", DefaultMaxSize + 1, "notes.txt", ReasonTooLarge},
		{"wrong extension", 512, "notes.txt", ReasonWrongExtension},
		{"extension is case sensitive", 512, "game.sc2replay", ReasonWrongExtension},
		{"extension must be a suffix", 512, "game.SC2Replay.zip", ReasonWrongExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.size, tt.file, rules)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.reason, verr.Reason)
			assert.Equal(t, tt.file, verr.Name)
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	cases := map[int]string{
		0:    "00:00",
		59:   "00:59",
		60:   "01:00",
		65:   "01:05",
		125:  "02:05",
		3661: "61:01",
		-4:   "00:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatSeconds(in), "FormatSeconds(%d)", in)
	}
}

// TestBuildSummary_Ladder checks the Alice vs Bob scenario line by line
func TestBuildSummary_Ladder(t *testing.T) {
	got := BuildSummary(ladderMatch(), intPtr(1))

	want := "Map: Ladder\n" +
		"Duration: 02:05\n" +
		"Players:\n" +
		"Me: Alice as Terran (Win)\n" +
		"Bob(A.I.) as Zerg (Loss)\n" +
		"Events:\n" +
		"At 01:05, Alice used Build Barracks"
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "At 01:05,  used")
}

func TestBuildSummary_NoViewer(t *testing.T) {
	got := BuildSummary(ladderMatch(), nil)
	assert.NotContains(t, got, "Me: ")
	assert.Contains(t, got, "\nAlice as Terran (Win)\n")
}

func TestBuildSummary_DanglingPlayerKeepsEvent(t *testing.T) {
	data := ladderMatch()
	data.Commands = append(data.Commands, CommandEvent{Player: 9, Second: 3, AbilityName: "Train Probe"})

	got := BuildSummary(data, nil)
	assert.Contains(t, got, "At 00:03,  used Train Probe")
}

func TestBuildSummary_DuplicateIDLastWriteWins(t *testing.T) {
	data := ladderMatch()
	data.Players = append(data.Players, PlayerStats{PlayerID: 1, Name: "Carol", Race: "Protoss", IsHuman: true, Result: "Win"})

	got := BuildSummary(data, nil)
	assert.Contains(t, got, "At 01:05, Carol used Build Barracks")
}

// TestBuildSummary_SectionLineCounts checks one line per player and per command
func TestBuildSummary_SectionLineCounts(t *testing.T) {
	many := ladderMatch()
	for i := 0; i < 25; i++ {
		many.Commands = append(many.Commands, CommandEvent{Player: 2, Second: i * 7, AbilityName: "Train Drone"})
	}

	inputs := []SummarisedData{
		{},
		{Map: "Empty", Players: []PlayerStats{}, Commands: []CommandEvent{}},
		ladderMatch(),
		many,
	}

	for _, data := range inputs {
		players, events := splitSections(t, BuildSummary(data, intPtr(2)))
		assert.Len(t, players, len(data.Players))
		assert.Len(t, events, len(data.Commands))
	}
}

func TestBuildSummary_Deterministic(t *testing.T) {
	data := ladderMatch()
	assert.Equal(t, BuildSummary(data, intPtr(2)), BuildSummary(data, intPtr(2)))
}

func TestBuildPrompt(t *testing.T) {
	data := ladderMatch()
	for _, viewer := range []*int{nil, intPtr(1), intPtr(2), intPtr(42)} {
		prompt := BuildPrompt(data, viewer)
		summary := BuildSummary(data, viewer)
		assert.True(t, strings.HasSuffix(prompt, SummaryHeader+summary))
	}

	prompt := BuildPrompt(data, nil)
	assert.Contains(t, prompt, "Build Order:")
	assert.Contains(t, prompt, "Enemy Units:")
	assert.Contains(t, prompt, "Improvement Steps:")
}

func TestSummarisedData_DecodeNumericBuild(t *testing.T) {
	raw := `{"map":"Ladder","players":[],"duration":10,"game_type":"1v1",
		"build":94137,"expansion":"LotV","speed":null,"commands":[]}`

	var data SummarisedData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.Equal(t, Text("94137"), data.Build)
	assert.Equal(t, "LotV", data.Expansion.String())
	assert.Equal(t, Text(""), data.Speed)
}

func TestSummarisedData_DecodeRejectsObjectBuild(t *testing.T) {
	var data SummarisedData
	err := json.Unmarshal([]byte(`{"build":{"x":1}}`), &data)
	assert.Error(t, err)
}

func TestSummarisedData_Player(t *testing.T) {
	data := ladderMatch()
	p, ok := data.Player(2)
	require.True(t, ok)
	assert.Equal(t, "Bob", p.Name)

	_, ok = data.Player(7)
	assert.False(t, ok)
}

// splitSections returns the player and event lines of a summary
func splitSections(t *testing.T, summary string) ([]string, []string) {
	t.Helper()

	_, rest, ok := strings.Cut(summary, "\nPlayers:\n")
	require.True(t, ok, "missing players header in %q", summary)
	playerBlock, eventBlock, ok := strings.Cut(rest, "\nEvents:\n")
	require.True(t, ok, "missing events header in %q", summary)
	return lines(playerBlock), lines(eventBlock)
}

func lines(block string) []string {
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}
