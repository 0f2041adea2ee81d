package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestStaticRewriterStripsFlaggedVocabulary(t *testing.T) {
	rw := NewStaticRewriter()
	out, err := rw.Rewrite(context.Background(), RewriteRequest{
		Prompt:   "A soldier holding a bloody knife in a ruined city at dawn",
		MinWords: 20,
		MaxWords: 40,
	})
	if err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	lower := strings.ToLower(out)
	if strings.Contains(lower, "bloody") || strings.Contains(lower, "knife") {
		t.Fatalf("flagged words survived: %q", out)
	}
	if !strings.Contains(lower, "ruined city at dawn") {
		t.Fatalf("visual intent lost: %q", out)
	}
	words := len(strings.Fields(out))
	if words < 20 || words > 40 {
		t.Fatalf("word count %d outside band: %q", words, out)
	}
}

func TestStaticRewriterClampsToMaxWords(t *testing.T) {
	long := strings.Repeat("meadow ", 100)
	out, _ := NewStaticRewriter().Rewrite(context.Background(), RewriteRequest{Prompt: long, MinWords: 10, MaxWords: 25})
	if got := len(strings.Fields(out)); got != 25 {
		t.Fatalf("word count = %d, want 25", got)
	}
}

func TestStaticRewriterAlwaysChangesThePrompt(t *testing.T) {
	rw := NewStaticRewriter()
	req := RewriteRequest{Prompt: strings.TrimSpace(strings.Repeat("quiet harbour ", 30)), MinWords: 30, MaxWords: 60}

	first, err := rw.Rewrite(context.Background(), req)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if first == req.Prompt {
		t.Fatal("a prompt at the word limit came back unchanged")
	}

	req.Prompt = first
	second, err := rw.Rewrite(context.Background(), req)
	if err != nil {
		t.Fatalf("second Rewrite: %v", err)
	}
	if second == first {
		t.Fatalf("rewriting a rewritten prompt returned it unchanged: %q", second)
	}
	if n := strings.Count(second, "family-friendly"); n != 1 {
		t.Fatalf("safe suffix appears %d times: %q", n, second)
	}
	if got := len(strings.Fields(second)); got > 60 {
		t.Fatalf("word count %d above band", got)
	}
}

func TestFinalizeRewriteAcceptsFencedJSONAndPlainText(t *testing.T) {
	req := RewriteRequest{MaxWords: 60}
	out, err := finalizeRewrite("```json\n{\"prompt\":\"A quiet harbour at dusk\"}\n```", req)
	if err != nil || out != "A quiet harbour at dusk" {
		t.Fatalf("fenced json = %q, %v", out, err)
	}
	out, err = finalizeRewrite("\"A quiet harbour at dusk\"", req)
	if err != nil || out != "A quiet harbour at dusk" {
		t.Fatalf("plain text = %q, %v", out, err)
	}
	if _, err := finalizeRewrite(`{"prompt":"  "}`, req); !errors.Is(err, ErrEmptyRewrite) {
		t.Fatalf("empty prompt error = %v", err)
	}
}

func TestGeminiRewriterSendsInstruction(t *testing.T) {
	var instruction string
	rw, err := NewGeminiRewriter(GeminiOptions{
		APIKey:   "dummy",
		MinWords: 30,
		MaxWords: 50,
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			var payload geminiRequest
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			instruction = payload.Contents[0].Parts[0].Text
			return stubResponse(http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"prompt\":\"A lone traveller crossing a misty bridge\"}"}]}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiRewriter returned error: %v", err)
	}
	out, err := rw.Rewrite(context.Background(), RewriteRequest{Prompt: "a gunfight on a bridge", TargetModel: "imagen"})
	if err != nil {
		t.Fatalf("Rewrite returned error: %v", err)
	}
	if out != "A lone traveller crossing a misty bridge" {
		t.Fatalf("out = %q", out)
	}
	for _, want := range []string{"between 30 and 50 words", "imagen", `"a gunfight on a bridge"`} {
		if !strings.Contains(instruction, want) {
			t.Fatalf("instruction missing %q: %s", want, instruction)
		}
	}
}

func TestGeminiRewriterSurfacesHTTPFailure(t *testing.T) {
	rw, _ := NewGeminiRewriter(GeminiOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusServiceUnavailable, `{"error":{"message":"overloaded"}}`), nil
		})},
	})
	_, err := rw.Rewrite(context.Background(), RewriteRequest{Prompt: "scene"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.HTTPStatus() != http.StatusServiceUnavailable || perr.Message != "overloaded" {
		t.Fatalf("error = %v, want ProviderError 503", err)
	}
}

func TestOpenAIRewriterNormalizesModelAndParsesChoice(t *testing.T) {
	var warned string
	var gotModel string
	rw, err := NewOpenAIRewriter(OpenAIOptions{
		APIKey: "dummy",
		Model:  "GPT4o_mini",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			var payload openAIChatRequest
			_ = json.NewDecoder(r.Body).Decode(&payload)
			gotModel = payload.Model
			return stubResponse(http.StatusOK, `{"choices":[{"message":{"content":"{\"prompt\":\"Children flying kites on a hill\"}"}}]}`), nil
		})},
		OnWarning: func(reason, detail string) { warned = reason },
	})
	if err != nil {
		t.Fatalf("NewOpenAIRewriter returned error: %v", err)
	}
	out, err := rw.Rewrite(context.Background(), RewriteRequest{Prompt: "scene"})
	if err != nil || out != "Children flying kites on a hill" {
		t.Fatalf("Rewrite = %q, %v", out, err)
	}
	if gotModel != "gpt-4o-mini" || warned != "model_alias" {
		t.Fatalf("model = %q, warning = %q", gotModel, warned)
	}
}

func TestOpenAIRewriterEmptyChoices(t *testing.T) {
	rw, _ := NewOpenAIRewriter(OpenAIOptions{
		APIKey: "dummy",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return stubResponse(http.StatusOK, `{"choices":[]}`), nil
		})},
	})
	if _, err := rw.Rewrite(context.Background(), RewriteRequest{Prompt: "scene"}); !errors.Is(err, ErrEmptyRewrite) {
		t.Fatalf("error = %v, want ErrEmptyRewrite", err)
	}
}
