package replay

// SummaryHeader separates the instructions from the match summary in a prompt
const SummaryHeader = "Summary of the replay:\n"

const promptPreamble = `This is a summary of my StarCraft 2 replay. Please analyze it and provide feedback on the following points:

  Build Order: Evaluate the effectiveness of my build order. How could I optimize it for better performance?
  Enemy Units: Based on my opponent's unit composition, what would have been the most effective counters?
  Improvement Steps: Suggest specific strategies or adjustments I can implement to improve my overall gameplay.

`

// BuildPrompt wraps the match summary in review instructions for an LLM.
// The summary is always the trailing part of the prompt.
func BuildPrompt(data SummarisedData, viewer *int) string {
	return promptPreamble + SummaryHeader + BuildSummary(data, viewer)
}
