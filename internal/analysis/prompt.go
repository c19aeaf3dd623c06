package analysis

import (
	"fmt"
	"strings"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"
)

const (
	maxChannelDescriptionChars = 500
	maxVideoDescriptionChars   = 200
	maxTagsPerVideo            = 5
)

const promptInstructions = `Based on the channel and video data above, provide a comprehensive analysis in the following JSON format:

{
  "summary": "A concise 3-paragraph summary describing what this channel is about, its main focus, and value proposition",
  "themes": ["theme1", "theme2", "theme3", "theme4", "theme5"],
  "target_audience": "Detailed description of the primary target audience",
  "content_style": "Description of the content style, tone, and presentation approach",
  "upload_frequency": "Estimated upload frequency pattern (e.g., 'daily', '2-3 times per week', 'weekly', 'irregular')",
  "confidence_score": 0.95
}

Important guidelines:
1. Base your analysis ONLY on the provided data - do not hallucinate
2. The summary should be factual and insightful
3. Themes should be specific topics or categories covered
4. Confidence score should reflect data quality (0.0-1.0)
5. Return ONLY valid JSON, no additional text
`

// BuildPrompt assembles the structured analysis prompt from channel metadata
// and the sampled videos. Pure and deterministic: identical inputs produce an
// identical prompt.
func BuildPrompt(channel *models.Channel, videos []*models.Video) string {
	var b strings.Builder

	b.WriteString("Channel Information:\n")
	fmt.Fprintf(&b, "- Title: %s\n", channel.Title)
	fmt.Fprintf(&b, "- Description: %s\n", orUnknown(truncate(channel.Description, maxChannelDescriptionChars)))
	fmt.Fprintf(&b, "- Subscriber Count: %d\n", channel.SubscriberCount)
	fmt.Fprintf(&b, "- Total Videos: %d\n", channel.VideoCount)
	fmt.Fprintf(&b, "- Active Since: %s\n", formatDate(channel))
	fmt.Fprintf(&b, "- Country: %s\n\n", orUnknown(channel.Country))

	fmt.Fprintf(&b, "Video Sample Analysis (%d representative videos):\n\n", len(videos))

	for i, v := range videos {
		fmt.Fprintf(&b, "Video %d:\n", i+1)
		fmt.Fprintf(&b, "- Title: %s\n", v.Title)
		fmt.Fprintf(&b, "- Description: %s\n", orUnknown(truncate(v.Description, maxVideoDescriptionChars)))
		fmt.Fprintf(&b, "- Views: %d\n", v.ViewCount)
		fmt.Fprintf(&b, "- Likes: %d\n", v.LikeCount)
		fmt.Fprintf(&b, "- Published: %s\n", v.PublishedAt.UTC().Format("2006-01-02"))
		fmt.Fprintf(&b, "- Duration: %s\n", orUnknown(v.Duration))
		fmt.Fprintf(&b, "- Tags: %s\n\n", strings.Join(topTags(v.Tags), ", "))
	}

	b.WriteString(promptInstructions)
	return b.String()
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func topTags(tags []string) []string {
	if len(tags) > maxTagsPerVideo {
		return tags[:maxTagsPerVideo]
	}
	return tags
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func formatDate(channel *models.Channel) string {
	if channel.PublishedAt.IsZero() {
		return "Unknown"
	}
	return channel.PublishedAt.UTC().Format("2006-01-02")
}
