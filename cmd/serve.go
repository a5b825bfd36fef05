package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clark-group/brokerage-cli/internal/aoa"
	"github.com/clark-group/brokerage-cli/internal/demandcheck"
	"github.com/clark-group/brokerage-cli/internal/model"
	"github.com/clark-group/brokerage-cli/internal/store"
)

var servePort int

// apiServer bundles the engines behind the HTTP API.
type apiServer struct {
	store     store.Store
	responses *demandcheck.ResponseBuilder
	builder   *demandcheck.Builder
	allocator *aoa.Allocator
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/mandates/{id}/demandcheck/answers", s.handleAnswers)
		r.Post("/mandates/{id}/demandcheck/finish", s.handleFinish)
		r.Get("/mandates/{id}/recommendations", s.handleRecommendations)
		r.Post("/opportunities/{id}/allocation", s.handleAllocation)
	})
	return r
}

func (s *apiServer) handleAnswers(w http.ResponseWriter, r *http.Request) {
	mandateID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Answers []model.QuestionAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "answers are required"})
		return
	}

	err := s.responses.AnswerQuestionnaire(r.Context(), mandateID, req.Answers)
	var vErr *demandcheck.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": vErr.Fields})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mandate not found"})
	case err != nil:
		serverError(w, "answer questionnaire", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func (s *apiServer) handleFinish(w http.ResponseWriter, r *http.Request) {
	mandateID, ok := pathID(w, r)
	if !ok {
		return
	}

	err := s.responses.Finalize(r.Context(), mandateID)
	var vErr *demandcheck.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": vErr.Fields})
		return
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mandate not found"})
		return
	case err != nil:
		serverError(w, "finalize questionnaire", err)
		return
	}

	recs, err := s.builder.ApplyRules(r.Context(), mandateID)
	if err != nil {
		serverError(w, "apply rules", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *apiServer) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	mandateID, ok := pathID(w, r)
	if !ok {
		return
	}

	recs, err := s.store.Recommendations(r.Context(), mandateID)
	if err != nil {
		serverError(w, "list recommendations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *apiServer) handleAllocation(w http.ResponseWriter, r *http.Request) {
	opportunityID, ok := pathID(w, r)
	if !ok {
		return
	}

	opp, err := s.store.Opportunity(r.Context(), opportunityID)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "opportunity not found"})
		return
	}
	if err != nil {
		serverError(w, "load opportunity", err)
		return
	}

	allocation, err := s.allocator.Call(r.Context(), opp)
	if err != nil {
		serverError(w, "allocate opportunity", err)
		return
	}

	if allocation.Cohort == aoa.CohortAoaGroup && len(allocation.AoaConsultantIDs) > 0 {
		winner := allocation.AoaConsultantIDs[0]
		if err := s.store.AssignConsultant(r.Context(), opp.ID, winner); err != nil {
			serverError(w, "assign consultant", err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, allocation)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func serverError(w http.ResponseWriter, action string, err error) {
	zap.L().Error(action+" failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for demand check and allocation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		responses, err := initResponseBuilder(st)
		if err != nil {
			return err
		}
		builder, err := initRecommendationBuilder(st)
		if err != nil {
			return err
		}

		api := &apiServer{
			store:     st,
			responses: responses,
			builder:   builder,
			allocator: initAllocator(st),
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.router(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
