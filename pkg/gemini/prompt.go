package gemini

const analysisPrompt = `
Analyze this video and report the following:

## Video content
- Narration (transcript of the audio)
- On-screen captions
- Number of cuts and seconds per cut

## Structure
- Hook in the first 3 seconds
- Overall structure (pattern name and flow)
- Highlights and peak moment

## Why it could go viral
- Hook strength (power to stop the scroll)
- Rarity (how unfamiliar it feels)
- Information density (tempo)
- Devices that prompt comments

Keep the analysis concise.
`

func urlPrompt(videoURL string) string {
	return "Analyze the following YouTube video.\nVideo URL: " + videoURL + "\n\n" + analysisPrompt
}
