package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"HipHopLab/core/lyric"
	"HipHopLab/logger"
	"HipHopLab/model"
	"HipHopLab/storage"
)

const (
	maxUploadMemory = 32 << 20
	maxLyricsBytes  = 1 << 20
	maxCoverBytes   = 10 << 20
)

type importResponse struct {
	Tracks []*model.Track `json:"tracks"`
	Failed []string       `json:"failed,omitempty"`
}

type lyricsResponse struct {
	Lines int `json:"lines"`
}

func (s *Server) trackByID(id string) (*model.Track, error) {
	st := s.store.State()
	i := st.IndexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, id)
	}
	return st.Playlist[i], nil
}

func (s *Server) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.State().Playlist)
}

// ImportTracksHandler imports every file of the multipart field "file".
func (s *Server) ImportTracksHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "missing 'file' in form")
		return
	}

	resp := importResponse{Tracks: []*model.Track{}}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			resp.Failed = append(resp.Failed, fh.Filename)
			continue
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			resp.Failed = append(resp.Failed, fh.Filename)
			continue
		}
		track, err := s.importer.Import(r.Context(), fh.Filename, data)
		if err != nil {
			logger.Error("import failed", logger.String("file", fh.Filename), logger.ErrorField(err))
			resp.Failed = append(resp.Failed, fh.Filename)
			continue
		}
		resp.Tracks = append(resp.Tracks, track)
	}

	status := http.StatusCreated
	if len(resp.Tracks) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.trackByID(id); err != nil {
		writeErr(w, err)
		return
	}
	var patch model.TrackPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	// cover references are session URIs owned by the registry
	patch.Cover = nil
	patch.CoverKey = nil
	if patch.CustomEQ != nil && len(*patch.CustomEQ) != 0 && len(*patch.CustomEQ) != model.EQBandCount {
		writeError(w, http.StatusBadRequest, "customEQ must have 10 entries")
		return
	}
	if patch.Duration != nil && *patch.Duration < 0 {
		writeError(w, http.StatusBadRequest, "duration must not be negative")
		return
	}

	s.store.UpdateTrack(id, patch)
	track, err := s.trackByID(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler removes a track after explicit confirmation and releases
// its session URIs.
func (s *Server) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, err := s.trackByID(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !requireConfirm(w, r) {
		return
	}
	s.store.RemoveTrack(id)
	s.registry.Revoke(track.Src, track.Cover)
	s.transport.Forget(track.Src)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SelectTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := s.trackByID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	s.store.SetCurrentTrack(track)
	s.writeState(w)
}

func (s *Server) MediaHandler(w http.ResponseWriter, r *http.Request) {
	track, err := s.trackByID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	s.serveURI(w, r, track.Src, track.Title)
}

func (s *Server) CoverHandler(w http.ResponseWriter, r *http.Request) {
	track, err := s.trackByID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	if track.Cover == "" {
		writeError(w, http.StatusNotFound, "track has no cover")
		return
	}
	s.serveURI(w, r, track.Cover, "")
}

// SetCoverHandler replaces a track's cover with the image in the multipart
// field "file". The previous cover URI stops resolving.
func (s *Server) SetCoverHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	track, err := s.trackByID(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if s.blobs == nil {
		writeError(w, http.StatusServiceUnavailable, "cover storage unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverBytes)
	f, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing 'file' in form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusUnsupportedMediaType, "cover must be an image")
		return
	}

	key := storage.CoverKey(id)
	if err := s.blobs.Put(r.Context(), key, data, contentType); err != nil {
		writeErr(w, fmt.Errorf("storing cover for %s: %w", id, err))
		return
	}
	uri := s.registry.Register(data, contentType)
	s.store.UpdateTrack(id, model.TrackPatch{Cover: &uri, CoverKey: &key})
	if track.Cover != "" {
		s.registry.Revoke(track.Cover)
	}

	updated, err := s.trackByID(id)
	if err != nil {
		// removed while the upload was in flight
		s.registry.Revoke(uri)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) serveURI(w http.ResponseWriter, r *http.Request, uri, name string) {
	data, err := s.registry.Resolve(uri)
	if err != nil {
		writeError(w, http.StatusGone, err.Error())
		return
	}
	if ct := s.registry.ContentType(uri); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) GetLyricsHandler(w http.ResponseWriter, r *http.Request) {
	track, err := s.trackByID(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", track.Title+".lrc"))
	io.WriteString(w, lyric.Format(track.Lyrics))
}

// PutLyricsHandler replaces a track's lyrics with an uploaded LRC document.
func (s *Server) PutLyricsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.trackByID(id); err != nil {
		writeErr(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLyricsBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	lines := lyric.Parse(strings.TrimPrefix(string(body), "\ufeff"))
	if len(lines) == 0 {
		writeErr(w, lyric.ErrNoLyrics)
		return
	}
	s.store.SetTrackLyrics(id, lines)
	writeJSON(w, http.StatusOK, lyricsResponse{Lines: len(lines)})
}
