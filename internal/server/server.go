// internal/server/server.go
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/quotehound/api/schemas"
	"github.com/xkilldash9x/quotehound/internal/browser"
	"github.com/xkilldash9x/quotehound/internal/config"
	"github.com/xkilldash9x/quotehound/internal/extract"
	"github.com/xkilldash9x/quotehound/internal/humanoid"
	"github.com/xkilldash9x/quotehound/internal/wizard"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server exposes the start/status/stop surface over HTTP. A start request
// runs the whole wizard synchronously and answers with the scraped report;
// the session it opened is torn down on every exit path.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	manager *browser.Manager
	http    *http.Server
}

// New wires the HTTP surface over the session manager.
func New(cfg *config.Config, manager *browser.Manager, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		manager: manager,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	return r
}

// ListenAndServe blocks serving HTTP until the listener fails or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening.", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections, drains in-flight requests, and closes
// any live browser session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down.")
	err := s.http.Shutdown(ctx)
	s.manager.Shutdown(ctx)
	return err
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to encode response.", zap.Error(err))
	}
}

// handleStart launches a fresh session (replacing any live one), drives the
// wizard end to end, scrapes the tiers, and tears the session down.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	// An empty body means "no vehicle"; anything else must parse.
	var req schemas.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, schemas.ErrorResponse{
			Status:    "error",
			Message:   "invalid request body: " + err.Error(),
			ErrorType: "BadRequest",
		})
		return
	}

	ctx := r.Context()
	s.logger.Info("Starting wizard run.",
		zap.String("year", req.Year), zap.String("make", req.Make), zap.String("model", req.Model))

	session, err := s.manager.StartSession(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusOK, schemas.ErrorResponse{
			Status:    "error",
			Message:   "failed to initialize browser session: " + err.Error(),
			ErrorType: string(wizard.KindSessionInit),
		})
		return
	}
	// The session never outlives the request, success or failure. Teardown
	// runs on a detached context so a client disconnect cannot strand the
	// browser process.
	defer func() {
		stopCtx, cancel := context.WithTimeout(browser.Detach(r.Context()), 15*time.Second)
		defer cancel()
		s.manager.StopSession(stopCtx)
	}()

	report, runErr := s.runWizard(ctx, session, schemas.VehicleSpec{
		Year:  req.Year,
		Make:  req.Make,
		Model: req.Model,
	})
	if runErr != nil {
		errType := "UnexpectedError"
		var stageErr *wizard.StageError
		if errors.As(runErr, &stageErr) {
			errType = string(stageErr.Kind)
		}
		s.logger.Error("Wizard run failed.", zap.Error(runErr))
		s.writeJSON(w, http.StatusOK, schemas.ErrorResponse{
			Status:    "error",
			Message:   runErr.Error(),
			ErrorType: errType,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// runWizard executes the stage table against the session and collects the
// per-tier report.
func (s *Server) runWizard(ctx context.Context, session *browser.Session, vehicle schemas.VehicleSpec) (schemas.QuoteReport, error) {
	sim := humanoid.New(s.cfg.Humanoid, s.logger)

	sc := wizard.StepContext{
		Page:     session,
		StartURL: s.cfg.Wizard.StartURL,
		Profile:  s.cfg.Wizard.Profile,
		Waits:    s.cfg.Network,
		Vehicle:  vehicle,
	}

	orch := wizard.New(sc, sim, s.logger)
	if err := orch.Run(ctx); err != nil {
		return schemas.QuoteReport{}, err
	}

	extractor := extract.New(session, sim, s.cfg.Network, s.logger)
	return extractor.CollectAll(ctx), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := s.manager.Current()
	if session == nil {
		s.writeJSON(w, http.StatusOK, schemas.StatusResponse{Status: "no_session"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	url, err := session.CurrentURL(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusOK, schemas.StatusResponse{
			Status:  "error",
			Message: "Browser session error: " + err.Error(),
		})
		return
	}
	title, err := session.Title(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusOK, schemas.StatusResponse{
			Status:  "error",
			Message: "Browser session error: " + err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, schemas.StatusResponse{
		Status:     "active",
		CurrentURL: url,
		Title:      title,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	if !s.manager.StopSession(ctx) {
		s.writeJSON(w, http.StatusOK, schemas.StopResponse{
			Status:  "no_session",
			Message: "No browser session to close",
		})
		return
	}
	s.writeJSON(w, http.StatusOK, schemas.StopResponse{
		Status:  "success",
		Message: "Browser closed successfully",
	})
}
