package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/pkg/zip"
)

const maxRemoteImageBytes = 32 << 20

// GetArchive streams a zip of every image generated so far, named by scene.
func (a *App) GetArchive(w http.ResponseWriter, r *http.Request) {
	h, ok := a.lookup(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	}
	snap := h.Snapshot()

	var assets []zip.Asset
	for _, it := range snap.Items {
		if it.Status != domain.ItemStatusSucceeded {
			continue
		}
		for j, img := range it.Images {
			data, err := a.loadImage(r.Context(), img.URL)
			if err != nil {
				a.logger.Warn().Err(err).
					Str("request_id", middleware.RequestIDFromContext(r.Context())).
					Str("batch_id", snap.ID).
					Int("scene", it.SceneIndex).
					Msg("archive: skipping image")
				continue
			}
			assets = append(assets, zip.Asset{
				Filename: fmt.Sprintf("scene-%02d-%02d%s", it.SceneIndex, j+1, extension(img.Format)),
				MIME:     img.Format,
				Data:     data,
			})
		}
	}
	if len(assets) == 0 {
		a.error(w, http.StatusNotFound, "no_images", "batch has no downloadable images yet")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="batch-%s.zip"`, snap.ID))
	if err := zip.Write(w, assets); err != nil {
		a.logger.Error().Err(err).Str("batch_id", snap.ID).Msg("archive: write failed")
	}
}

func (a *App) loadImage(ctx context.Context, url string) ([]byte, error) {
	switch {
	case strings.HasPrefix(url, "data:"):
		return decodeDataURL(url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return a.fetchRemote(ctx, url)
	case a.assets != nil:
		return a.assets.Read(ctx, url)
	default:
		return nil, fmt.Errorf("no asset reader for %q", url)
	}
}

func (a *App) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
}

func decodeDataURL(url string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("unsupported data url")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func extension(format string) string {
	switch strings.ToLower(format) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
