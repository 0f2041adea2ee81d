package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

type modelRewritePayload struct {
	Prompt string `json:"prompt"`
}

func buildRewriteInstruction(req RewriteRequest) string {
	minWords, maxWords := req.band()
	target := coalesce(req.TargetModel, "an AI image generator")
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "You rewrite image-generation prompts that were rejected by %s's content policy. ", target)
	sb.WriteString("Keep the visual intent of the scene: subject, setting, composition, mood, lighting and camera framing. ")
	sb.WriteString("Remove or neutralise anything that could be disallowed: violence, gore, weapons, nudity, real people, drugs, hate symbols, trademarks. ")
	fmt.Fprintf(sb, "The rewritten prompt must be between %d and %d words. ", minWords, maxWords)
	sb.WriteString(`Respond strictly with JSON matching this schema: {"prompt":string}. `)
	fmt.Fprintf(sb, "Original prompt: %q", strings.TrimSpace(req.Prompt))
	return sb.String()
}

// finalizeRewrite extracts the rewritten prompt from a model answer and
// enforces the upper bound of the length band.
func finalizeRewrite(raw string, req RewriteRequest) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyRewrite
	}
	if parsed, err := parseModelPayload[modelRewritePayload](text); err == nil {
		text = strings.TrimSpace(parsed.Prompt)
	} else {
		text = strings.Trim(trimCodeFence(text), "\"")
	}
	if text == "" {
		return "", ErrEmptyRewrite
	}
	_, maxWords := req.band()
	return clampWords(text, maxWords), nil
}

func clampWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.TrimRight(strings.Join(words, " "), ",;")
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
