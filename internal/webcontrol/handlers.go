// KioskBridge - Headless realtime session/event client for home media servers
// Copyright 2026 KioskBridge contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mediaserver-tools/kioskbridge

package webcontrol

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mediaserver-tools/kioskbridge/internal/grid"
	"github.com/mediaserver-tools/kioskbridge/internal/logging"
	"github.com/mediaserver-tools/kioskbridge/internal/models"
	"github.com/mediaserver-tools/kioskbridge/internal/notify"
	"github.com/mediaserver-tools/kioskbridge/internal/session"
)

// maxControlBody bounds control request bodies; they are tiny JSON objects.
const maxControlBody = 64 << 10

// statusResponse is the full client state exposed at GET /api/status.
type statusResponse struct {
	Session    models.SessionSnapshot   `json:"session"`
	Chrome     session.Chrome           `json:"chrome"`
	StatusLine string                   `json:"statusLine,omitempty"`
	LogLines   []string                 `json:"logLines,omitempty"`
	Memory     models.MemoryStats       `json:"memory"`
	Scan       models.ScanLibraryStatus `json:"scan"`
	Reloadable bool                     `json:"reloadable"`
	Channels   map[string]string        `json:"channels"`
	Notices    []notify.Notice          `json:"notices"`
	Player     playerStatus             `json:"player"`
}

type playerStatus struct {
	Request models.PlayerRequest `json:"request"`
	State   models.PlayerState   `json:"state"`
}

// controlRequest is the POST /api/control body. Exactly one of Command or
// Player is acted on; Player wins when both are present.
type controlRequest struct {
	Command  string                `json:"command,omitempty"`
	Arg      string                `json:"arg,omitempty"`
	Username string                `json:"username,omitempty"`
	Password string                `json:"password,omitempty"`
	Player   *models.PlayerCommand `json:"player,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	channels := make(map[string]string, len(s.channels))
	for _, ch := range s.channels {
		channels[ch.String()] = ch.ReadyState().String()
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Session:    s.session.Snapshot(),
		Chrome:     s.session.Chrome(),
		StatusLine: s.session.StatusLine(),
		LogLines:   s.session.LogLines(),
		Memory:     s.events.Memory(),
		Scan:       s.events.ScanLibraryStatus(),
		Reloadable: s.events.Reloadable(),
		Channels:   channels,
		Notices:    s.notices.Active(),
		Player: playerStatus{
			Request: s.player.Request(),
			State:   s.player.State(),
		},
	})
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	body := io.LimitReader(r.Body, maxControlBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid control body")
		return
	}

	if req.Player != nil {
		s.player.HandleCommand(*req.Player)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	switch req.Command {
	case "refresh":
		s.session.RefreshAsync()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "login":
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing credentials")
			return
		}
		token, err := s.backend.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			logging.Warn().Err(err).Str("username", req.Username).Msg("login failed")
			writeError(w, http.StatusUnauthorized, "login failed")
			return
		}
		s.applyToken(token)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case "login_localhost":
		token, err := s.backend.LocalhostLogin(r.Context())
		if err != nil {
			logging.Warn().Err(err).Msg("localhost login failed")
			writeError(w, http.StatusUnauthorized, "localhost login failed")
			return
		}
		s.applyToken(token)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case "logout":
		if err := s.session.Logout(r.Context()); err != nil {
			writeError(w, http.StatusBadGateway, "logout failed")
			return
		}
		if s.sink != nil {
			s.sink("")
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case "restart":
		if !s.session.HavePermission(models.PermServerRestart) {
			writeError(w, http.StatusForbidden, "restart not permitted")
			return
		}
		if err := s.backend.Restart(r.Context()); err != nil {
			logging.Warn().Err(err).Msg("server restart request failed")
			writeError(w, http.StatusBadGateway, "restart failed")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "browse", "play", "show":
		if req.Arg == "" {
			writeError(w, http.StatusBadRequest, "missing id argument")
			return
		}
		switch req.Command {
		case "browse":
			s.player.Browse(req.Arg)
		case "play":
			s.player.Play(req.Arg)
		case "show":
			s.player.Show(req.Arg)
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	case "resolve":
		if req.Arg == "" {
			writeError(w, http.StatusBadRequest, "missing notice id")
			return
		}
		s.notices.Resolve(req.Arg)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	default:
		writeError(w, http.StatusBadRequest, "unknown command")
	}
}

// applyToken hands a fresh token to the sink and schedules a session
// re-fetch so capabilities reflect the new identity.
func (s *Server) applyToken(token string) {
	if s.sink != nil {
		s.sink(token)
	}
	s.session.RefreshAsync()
}

func (s *Server) handleNotices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.notices.Active())
}

func (s *Server) handleRenderers(w http.ResponseWriter, _ *http.Request) {
	actions := s.events.RendererActions()
	if actions == nil {
		actions = []models.RendererAction{}
	}
	writeJSON(w, http.StatusOK, actions)
}

// handleGridMove computes keyboard focus movement for a tile grid. Kiosk
// front-ends call it so the arithmetic lives in exactly one place.
func (s *Server) handleGridMove(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count, err := strconv.Atoi(q.Get("count"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid count")
		return
	}
	columns, err := strconv.Atoi(q.Get("columns"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid columns")
		return
	}
	current, err := strconv.Atoi(q.Get("current"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid current")
		return
	}
	rtl := q.Get("rtl") == "true"

	layout := grid.New(count, columns, rtl)
	index := layout.Move(current, grid.Key(q.Get("key")))
	writeJSON(w, http.StatusOK, map[string]int{"index": index})
}

func (s *Server) handlePrefsList(w http.ResponseWriter, _ *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "preference store not configured")
		return
	}
	keys, err := s.prefs.Keys()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing preferences failed")
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (s *Server) handlePrefGet(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "preference store not configured")
		return
	}
	key := chi.URLParam(r, "key")
	value, ok, err := s.prefs.Get(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading preference failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "preference not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handlePrefPut(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "preference store not configured")
		return
	}
	key := chi.URLParam(r, "key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxControlBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preference body")
		return
	}
	if err := s.prefs.Set(key, body.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "storing preference failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}

func (s *Server) handlePrefDelete(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "preference store not configured")
		return
	}
	if err := s.prefs.Delete(chi.URLParam(r, "key")); err != nil {
		writeError(w, http.StatusInternalServerError, "deleting preference failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("writing response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
