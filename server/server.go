package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"HipHopLab/config"
	"HipHopLab/core/library"
	"HipHopLab/core/lyric"
	"HipHopLab/core/player"
	"HipHopLab/core/visual"
	"HipHopLab/logger"
	"HipHopLab/model"
	"HipHopLab/storage"
)

// Transport is the playback surface the API drives directly. The audio
// engine implements it.
type Transport interface {
	Seek(seconds float64)
	CurrentTime() float64
	IsPlaying() bool
	TogglePlay()
	Forget(uri string)
}

// SettingsStore keeps the settings the playback store does not own.
type SettingsStore interface {
	Language() model.Language
	SetLanguage(ctx context.Context, lang model.Language) error
}

// Deps are the collaborators of the API server.
type Deps struct {
	Config    *config.Config
	Store     *player.Store
	Transport Transport
	Analyser  visual.Analyser
	Importer  library.FileImporter
	Registry  *library.Registry
	Blobs     storage.BlobStore
	Settings  SettingsStore
	// ReadClipboard defaults to lyric.ReadClipboard.
	ReadClipboard func(ctx context.Context) (string, error)
}

// Server exposes the player over HTTP and websockets.
type Server struct {
	cfg       *config.Config
	store     *player.Store
	transport Transport
	analyser  visual.Analyser
	importer  library.FileImporter
	registry  *library.Registry
	blobs     storage.BlobStore
	settings  SettingsStore
	clipboard func(ctx context.Context) (string, error)

	router   *mux.Router
	state    *Hub
	spectrum *Hub

	editorMu sync.Mutex
	editor   *lyric.Session
}

func New(d Deps) *Server {
	s := &Server{
		cfg:       d.Config,
		store:     d.Store,
		transport: d.Transport,
		analyser:  d.Analyser,
		importer:  d.Importer,
		registry:  d.Registry,
		blobs:     d.Blobs,
		settings:  d.Settings,
		clipboard: d.ReadClipboard,
	}
	if s.cfg == nil {
		s.cfg = config.FromEnv()
	}
	if s.clipboard == nil {
		s.clipboard = lyric.ReadClipboard
	}
	s.state = NewHub("state", websocket.TextMessage, s.checkOrigin)
	s.spectrum = NewHub("spectrum", websocket.BinaryMessage, s.checkOrigin)
	s.router = s.routes()
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.router)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.GetStateHandler).Methods(http.MethodGet)

	api.HandleFunc("/player/toggle", s.TogglePlayHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/next", s.NextHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/prev", s.PrevHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/mute", s.MuteHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/repeat", s.RepeatHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/seek", s.SeekHandler).Methods(http.MethodPost)
	api.HandleFunc("/player/volume", s.VolumeHandler).Methods(http.MethodPut)
	api.HandleFunc("/player/rate", s.RateHandler).Methods(http.MethodPut)
	api.HandleFunc("/player/pitch", s.PitchHandler).Methods(http.MethodPut)
	api.HandleFunc("/player/eq", s.EQHandler).Methods(http.MethodPut)
	api.HandleFunc("/keys/{key}", s.KeyHandler).Methods(http.MethodPost)

	api.HandleFunc("/tracks", s.ListTracksHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks", s.ImportTracksHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}", s.UpdateTrackHandler).Methods(http.MethodPut)
	api.HandleFunc("/tracks/{id}", s.DeleteTrackHandler).Methods(http.MethodDelete)
	api.HandleFunc("/tracks/{id}/select", s.SelectTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/tracks/{id}/media", s.MediaHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/tracks/{id}/cover", s.CoverHandler).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/tracks/{id}/cover", s.SetCoverHandler).Methods(http.MethodPut)
	api.HandleFunc("/tracks/{id}/lyrics", s.GetLyricsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tracks/{id}/lyrics", s.PutLyricsHandler).Methods(http.MethodPut)

	api.HandleFunc("/editor", s.OpenEditorHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor", s.GetEditorHandler).Methods(http.MethodGet)
	api.HandleFunc("/editor", s.DiscardEditorHandler).Methods(http.MethodDelete)
	api.HandleFunc("/editor/capture", s.StartCaptureHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/stop", s.StopCaptureHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/tap", s.TapHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/select/{index:[0-9]+}", s.SelectLineHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/text", s.SetTextHandler).Methods(http.MethodPut)
	api.HandleFunc("/editor/clear", s.ClearCapturesHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/import", s.ImportLyricsHandler).Methods(http.MethodPost)
	api.HandleFunc("/editor/save", s.SaveLyricsHandler).Methods(http.MethodPost)

	api.HandleFunc("/settings/language", s.GetLanguageHandler).Methods(http.MethodGet)
	api.HandleFunc("/settings/language", s.SetLanguageHandler).Methods(http.MethodPut)

	router.HandleFunc("/ws/state", s.StateSocketHandler)
	router.HandleFunc("/ws/spectrum", s.SpectrumSocketHandler)
	return router
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.allowOrigin(origin) != ""
}

// allowOrigin returns the value for Access-Control-Allow-Origin, or "" when
// the origin is not allowed.
func (s *Server) allowOrigin(origin string) string {
	if slices.Contains(s.cfg.CORSOrigins, "*") {
		return "*"
	}
	if slices.Contains(s.cfg.CORSOrigins, origin) {
		return origin
	}
	return ""
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allowed := s.allowOrigin(r.Header.Get("Origin")); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400")
			if allowed != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves until ctx is done, then shuts down gracefully. It also drives
// the state and spectrum websocket feeds.
func (s *Server) Run(ctx context.Context) error {
	unsubscribe := s.store.Subscribe(player.FieldAll, func(_, next player.State) {
		if s.state.Len() == 0 {
			return
		}
		if data, err := json.Marshal(next); err == nil {
			s.state.Broadcast(data)
		}
	})
	defer unsubscribe()

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	if s.analyser != nil {
		bridge := visual.NewBridge(s.analyser, func(frame []byte) {
			if s.spectrum.Len() == 0 {
				return
			}
			s.spectrum.Broadcast(slices.Clone(frame))
		})
		go bridge.Run(feedCtx, s.cfg.SpectrumFPS)
	}

	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	s.state.Close()
	s.spectrum.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func (s *Server) StateSocketHandler(w http.ResponseWriter, r *http.Request) {
	initial, err := json.Marshal(s.store.State())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.state.Serve(w, r, initial)
}

func (s *Server) SpectrumSocketHandler(w http.ResponseWriter, r *http.Request) {
	if s.analyser == nil {
		writeError(w, http.StatusServiceUnavailable, "frequency analysis unavailable")
		return
	}
	s.spectrum.Serve(w, r, nil)
}
