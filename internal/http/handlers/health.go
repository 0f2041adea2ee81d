package handlers

import (
	"net/http"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Models lists the image models batches may request.
func (a *App) Models(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string][]string{"models": a.models})
}
