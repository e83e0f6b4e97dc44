package server

import (
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"HipHopLab/model"
)

const maxPlaybackRate = 16

type valueRequest struct {
	Value *float64 `json:"value"`
}

type boolRequest struct {
	Value *bool `json:"value"`
}

type eqRequest struct {
	Gains []float64 `json:"gains"`
}

type seekRequest struct {
	Time *float64 `json:"time"`
}

type keyResponse struct {
	Handled bool `json:"handled"`
}

type languageRequest struct {
	Language model.Language `json:"language"`
}

func (s *Server) writeState(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.store.State())
}

func (s *Server) GetStateHandler(w http.ResponseWriter, r *http.Request) {
	s.writeState(w)
}

func (s *Server) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	if s.store.State().CurrentTrack == nil {
		writeError(w, http.StatusConflict, "no current track to play")
		return
	}
	s.transport.TogglePlay()
	s.writeState(w)
}

func (s *Server) NextHandler(w http.ResponseWriter, r *http.Request) {
	s.store.PlayNext()
	s.writeState(w)
}

func (s *Server) PrevHandler(w http.ResponseWriter, r *http.Request) {
	s.store.PlayPrev()
	s.writeState(w)
}

func (s *Server) MuteHandler(w http.ResponseWriter, r *http.Request) {
	s.store.ToggleMute()
	s.writeState(w)
}

func (s *Server) RepeatHandler(w http.ResponseWriter, r *http.Request) {
	s.store.ToggleRepeat()
	s.writeState(w)
}

func (s *Server) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Time == nil || math.IsNaN(*req.Time) || math.IsInf(*req.Time, 0) {
		writeError(w, http.StatusBadRequest, "time must be a finite number of seconds")
		return
	}
	s.transport.Seek(math.Max(0, *req.Time))
	s.writeState(w)
}

func (s *Server) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil || !(*req.Value >= 0 && *req.Value <= 1) {
		writeError(w, http.StatusBadRequest, "volume must be within [0, 1]")
		return
	}
	s.store.SetVolume(*req.Value)
	s.writeState(w)
}

func (s *Server) RateHandler(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil || !(*req.Value > 0 && *req.Value <= maxPlaybackRate) {
		writeError(w, http.StatusBadRequest, "rate must be within (0, 16]")
		return
	}
	s.store.SetPlaybackRate(*req.Value)
	s.writeState(w)
}

func (s *Server) PitchHandler(w http.ResponseWriter, r *http.Request) {
	var req boolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	s.store.SetPreservesPitch(*req.Value)
	s.writeState(w)
}

func (s *Server) EQHandler(w http.ResponseWriter, r *http.Request) {
	var req eqRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Gains) != model.EQBandCount {
		writeError(w, http.StatusBadRequest, "gains must have 10 entries")
		return
	}
	s.store.SetEQGains(req.Gains)
	s.writeState(w)
}

func (s *Server) KeyHandler(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	writeJSON(w, http.StatusOK, keyResponse{Handled: s.store.HandleKey(key, s.transport)})
}

func (s *Server) GetLanguageHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languageRequest{Language: s.settings.Language()})
}

func (s *Server) SetLanguageHandler(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.settings.SetLanguage(r.Context(), req.Language); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
