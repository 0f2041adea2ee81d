package image

import (
	"fmt"
	"strings"
)

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted, washed out, incorrect anatomy, extra limbs, text artefacts, watermark"

// composeScenePrompt appends the batch-wide visual style to a scene prompt.
func composeScenePrompt(prompt, style string) string {
	prompt = strings.TrimSpace(prompt)
	style = strings.TrimSpace(style)
	if style == "" {
		return prompt
	}
	if prompt == "" {
		return fmt.Sprintf("Visual style: %s.", style)
	}
	return fmt.Sprintf("%s\nVisual style: %s.", prompt, style)
}

// AspectRatioSize maps an aspect ratio string to the DashScope supported size token.
func AspectRatioSize(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "16:9":
		return "1664*928"
	case "4:3":
		return "1472*1104"
	case "3:4":
		return "1140*1472"
	case "9:16":
		return "928*1664"
	default:
		return "1328*1328"
	}
}
