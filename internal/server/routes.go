package server

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jfmyers9/playlistlog/internal/importer"
	"github.com/jfmyers9/playlistlog/internal/protocol"
	"github.com/jfmyers9/playlistlog/internal/store"
	"github.com/rs/zerolog"
)

// ProtocolHandler turns a request's parameters into a protocol response
type ProtocolHandler interface {
	Handle(ctx context.Context, params url.Values) protocol.Response
}

// ArchiveImporter imports an uploaded export archive for a user
type ArchiveImporter interface {
	Run(ctx context.Context, archivePath string, userID int64) (importer.Summary, error)
}

// UserStore resolves admin users for the import wizard
type UserStore interface {
	UserByLogin(ctx context.Context, login string) (*store.User, error)
}

// Handlers groups the components the router dispatches to
type Handlers struct {
	Handshake ProtocolHandler
	Submit    ProtocolHandler
	Importer  ArchiveImporter
	Users     UserStore
}

// Router builds the HTTP routing layer
func Router(h Handlers, cfg Config, logger zerolog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond(w, protocol.RespOK)
	})

	endpoint := protocolEndpoint(h.Handshake, h.Submit, logger)
	r.HandleFunc("/"+protocol.QueryVar, endpoint)
	r.HandleFunc("/"+protocol.QueryVar+"/*", endpoint)

	wizard := &importWizard{
		importer:       h.Importer,
		tempDir:        cfg.UploadDir,
		maxUploadBytes: cfg.MaxUploadBytes,
		logger:         logger.With().Str("component", "import-wizard").Logger(),
	}
	r.Route("/admin/import", func(r chi.Router) {
		r.Use(adminAuth(h.Users, logger))
		r.Get("/", wizard.dispatch)
		r.Post("/", wizard.dispatch)
	})

	return r
}

// protocolEndpoint dispatches a request carrying form data to the
// submission handler and everything else to the handshake handler.
func protocolEndpoint(handshake, submit ProtocolHandler, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				logger.Debug().Err(err).Msg("Unparseable submission body")
				respond(w, protocol.RespBadRequest)
				return
			}
			if len(r.PostForm) > 0 {
				respond(w, submit.Handle(r.Context(), r.PostForm))
				return
			}
		}

		respond(w, handshake.Handle(r.Context(), r.URL.Query()))
	}
}

// respond writes a protocol response. It is the only place protocol
// replies reach the transport.
func respond(w http.ResponseWriter, resp protocol.Response) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.Code)
	_, _ = w.Write([]byte(resp.Text))
}

func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("Request")
		})
	}
}
