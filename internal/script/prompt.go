package script

import "fmt"

// narrationSystemPrompt captures the instructions sent to the configured model
// when deriving narration scripts. Keep updates centralized here so it is easy
// to tweak without hunting through call sites.
const narrationSystemPrompt = `You are an expert explainer who turns dense long-form text into short, high-engagement vertical-video scripts.`

const narrationUserTemplate = `Read the article text (between ` + "```...```" + `) and compress it into a script for a 35-60s vertical video.

Guidelines:
- Hook the viewer in the first line, use clear metaphors, avoid jargon, second-person voice
- End with either a teaser or a punchy takeaway

Return a JSON object with the following fields:
- title: A catchy title (max 100 chars)
- hook: An attention-grabbing opening line (15-20 words)
- narration: The main script content (100-130 words)
- cta: A call-to-action or key takeaway (10-15 words)
- keywords: 3-5 relevant keywords or hashtags
- estimated_duration_sec: Estimated duration in seconds (35-60)

Format the response as a single line of minified JSON.

ARTICLE
` + "```" + `
%s
` + "```"

func buildUserPrompt(windowText string) string {
	return fmt.Sprintf(narrationUserTemplate, windowText)
}
