package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"HipHopLab/core/lyric"
	"HipHopLab/logger"
	"HipHopLab/model"
)

const clipboardTimeout = 5 * time.Second

type openEditorRequest struct {
	TrackID string `json:"trackId"`
}

type textRequest struct {
	Text string `json:"text"`
}

type tapResponse struct {
	Stamped bool           `json:"stamped"`
	Editor  lyric.Snapshot `json:"editor"`
}

type importLyricsResponse struct {
	Lines  int            `json:"lines"`
	Editor lyric.Snapshot `json:"editor"`
}

type saveResponse struct {
	TrackID string            `json:"trackId"`
	Lyrics  []model.LyricLine `json:"lyrics"`
}

// withEditor runs fn against the open session under the editor lock.
func (s *Server) withEditor(w http.ResponseWriter, fn func(*lyric.Session) error) {
	s.editorMu.Lock()
	defer s.editorMu.Unlock()
	if s.editor == nil {
		writeErr(w, ErrNoEditor)
		return
	}
	if err := fn(s.editor); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.editor.Snapshot())
}

// OpenEditorHandler starts a lyric session for the given track, or the
// current one, replacing any open session.
func (s *Server) OpenEditorHandler(w http.ResponseWriter, r *http.Request) {
	var req openEditorRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	var track *model.Track
	if req.TrackID != "" {
		t, err := s.trackByID(req.TrackID)
		if err != nil {
			writeErr(w, err)
			return
		}
		track = t
	} else if track = s.store.State().CurrentTrack; track == nil {
		writeError(w, http.StatusConflict, "no current track to edit")
		return
	}

	s.editorMu.Lock()
	s.editor = lyric.NewSession(track, s.transport)
	snap := s.editor.Snapshot()
	s.editorMu.Unlock()
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) GetEditorHandler(w http.ResponseWriter, r *http.Request) {
	s.withEditor(w, func(*lyric.Session) error { return nil })
}

func (s *Server) DiscardEditorHandler(w http.ResponseWriter, r *http.Request) {
	s.editorMu.Lock()
	s.editor = nil
	s.editorMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) StartCaptureHandler(w http.ResponseWriter, r *http.Request) {
	s.withEditor(w, func(e *lyric.Session) error { return e.StartCapture() })
}

func (s *Server) StopCaptureHandler(w http.ResponseWriter, r *http.Request) {
	s.withEditor(w, func(e *lyric.Session) error {
		e.StopCapture()
		return nil
	})
}

func (s *Server) TapHandler(w http.ResponseWriter, r *http.Request) {
	s.editorMu.Lock()
	defer s.editorMu.Unlock()
	if s.editor == nil {
		writeErr(w, ErrNoEditor)
		return
	}
	stamped := s.editor.Tap()
	writeJSON(w, http.StatusOK, tapResponse{Stamped: stamped, Editor: s.editor.Snapshot()})
}

func (s *Server) SelectLineHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line index")
		return
	}
	s.withEditor(w, func(e *lyric.Session) error { return e.Select(index) })
}

func (s *Server) SetTextHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.withEditor(w, func(e *lyric.Session) error { return e.SetText(req.Text) })
}

func (s *Server) ClearCapturesHandler(w http.ResponseWriter, r *http.Request) {
	if !requireConfirm(w, r) {
		return
	}
	s.withEditor(w, func(e *lyric.Session) error {
		e.Clear()
		return nil
	})
}

// ImportLyricsHandler loads LRC text from the request body, or from the host
// clipboard with ?source=clipboard.
func (s *Server) ImportLyricsHandler(w http.ResponseWriter, r *http.Request) {
	var text string
	if r.URL.Query().Get("source") == "clipboard" {
		ctx, cancel := context.WithTimeout(r.Context(), clipboardTimeout)
		defer cancel()
		t, err := s.clipboard(ctx)
		if err != nil {
			logger.Warn("clipboard import declined", logger.ErrorField(err))
			writeErr(w, err)
			return
		}
		text = t
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxLyricsBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		text = string(body)
	}

	s.editorMu.Lock()
	defer s.editorMu.Unlock()
	if s.editor == nil {
		writeErr(w, ErrNoEditor)
		return
	}
	n, err := s.editor.ImportExternal(text)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importLyricsResponse{Lines: n, Editor: s.editor.Snapshot()})
}

// SaveLyricsHandler commits the session's lyrics to its track and closes it.
func (s *Server) SaveLyricsHandler(w http.ResponseWriter, r *http.Request) {
	s.editorMu.Lock()
	defer s.editorMu.Unlock()
	if s.editor == nil {
		writeErr(w, ErrNoEditor)
		return
	}
	lines, err := s.editor.Save()
	if err != nil {
		writeErr(w, err)
		return
	}
	trackID := s.editor.TrackID()
	s.editor = nil

	if _, err := s.trackByID(trackID); err != nil {
		writeErr(w, err)
		return
	}
	s.store.SetTrackLyrics(trackID, lines)
	writeJSON(w, http.StatusOK, saveResponse{TrackID: trackID, Lyrics: lines})
}
