package replay

import "strings"

// BuildSummary renders the match as plain text: map, duration, roster and
// the command log in the order it was received. viewer marks the player the
// user identified as themselves; nil means nobody is selected.
func BuildSummary(data SummarisedData, viewer *int) string {
	names := make(map[int]string, len(data.Players))
	for _, p := range data.Players {
		names[p.PlayerID] = p.Name
	}

	playerRows := make([]string, 0, len(data.Players))
	for _, p := range data.Players {
		playerRows = append(playerRows, playerLine(p, viewer))
	}

	commandRows := make([]string, 0, len(data.Commands))
	for _, c := range data.Commands {
		// Unknown player ids render as an empty name; the event is kept.
		commandRows = append(commandRows,
			"At "+FormatSeconds(c.Second)+", "+names[c.Player]+" used "+c.AbilityName)
	}

	var b strings.Builder
	b.WriteString("Map: ")
	b.WriteString(data.Map)
	b.WriteString("\nDuration: ")
	b.WriteString(FormatSeconds(data.Duration))
	b.WriteString("\nPlayers:\n")
	b.WriteString(strings.Join(playerRows, "\n"))
	b.WriteString("\nEvents:\n")
	b.WriteString(strings.Join(commandRows, "\n"))
	return b.String()
}

func playerLine(p PlayerStats, viewer *int) string {
	var b strings.Builder
	if viewer != nil && p.PlayerID == *viewer {
		b.WriteString("Me: ")
	}
	b.WriteString(p.Name)
	// is_human=false is annotated as an A.I. opponent
	if !p.IsHuman {
		b.WriteString("(A.I.)")
	}
	b.WriteString(" as ")
	b.WriteString(p.Race)
	b.WriteString(" (")
	b.WriteString(p.Result)
	b.WriteString(")")
	return b.String()
}
