package image

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Router dispatches a request to the generator registered for its Model,
// falling back to the default model when the requested one is unknown.
type Router struct {
	generators   map[string]Generator
	defaultModel string
}

// NewRouter builds a router. defaultModel must be one of the registered keys.
func NewRouter(defaultModel string, generators map[string]Generator) (*Router, error) {
	defaultModel = normalizeModel(defaultModel)
	normalized := make(map[string]Generator, len(generators))
	for model, gen := range generators {
		if gen == nil {
			continue
		}
		normalized[normalizeModel(model)] = gen
	}
	if _, ok := normalized[defaultModel]; !ok {
		return nil, fmt.Errorf("image: default model %q has no generator", defaultModel)
	}
	return &Router{generators: normalized, defaultModel: defaultModel}, nil
}

// Select returns the generator and the model that will actually serve req.
func (r *Router) Select(requested string) (Generator, string) {
	if gen, ok := r.generators[normalizeModel(requested)]; ok {
		return gen, normalizeModel(requested)
	}
	return r.generators[r.defaultModel], r.defaultModel
}

// Models lists registered model keys in sorted order.
func (r *Router) Models() []string {
	models := make([]string, 0, len(r.generators))
	for model := range r.generators {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

func (r *Router) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	gen, model := r.Select(req.Model)
	req.Model = model
	return gen.Generate(ctx, req)
}

func normalizeModel(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

var _ Generator = (*Router)(nil)
