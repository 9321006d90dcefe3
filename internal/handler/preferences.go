package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/notebook/internal/service"
)

type PreferencesHandler struct {
	prefs  *service.PreferencesService
	logger *slog.Logger
}

func NewPreferencesHandler(prefs *service.PreferencesService, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: logger}
}

type preferencesRequest struct {
	ColorTheme *string `json:"colorTheme"`
	FontTheme  *string `json:"fontTheme"`
}

// HandleGet
//
// HTTP: GET /api/preferences
func (h *PreferencesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Get(r.Context(), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleUpdate
//
// HTTP: PUT /api/preferences
// BODY: {"colorTheme": "green", "fontTheme": "serif"} (either may be omitted)
func (h *PreferencesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.prefs.Update(r.Context(), actorID(r), service.PreferencesPatch{
		ColorTheme: req.ColorTheme,
		FontTheme:  req.FontTheme,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
