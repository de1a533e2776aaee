package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"realestate-comps/models"
	"realestate-comps/services"
	"realestate-comps/utils"
)

// Queries is the read-only query surface the HTTP layer serves.
// *services.Catalog implements it.
type Queries interface {
	Len() int
	HasModel() bool
	Listing(id string) (models.Listing, error)
	Comps(id string, n int) ([]models.Comp, error)
	Estimate(id string) (models.Estimate, error)
	Insights() *models.InsightReport
	Browse(f services.ListingFilter) services.ListingPage
	FilterOptions() services.FilterOptions
}

// Server exposes the catalog over HTTP.
type Server struct {
	queries    Queries
	logger     *utils.Logger
	router     *mux.Router
	httpServer *http.Server
}

// NewServer wires routes and middleware around q.
func NewServer(addr string, q Queries, logger *utils.Logger) *Server {
	s := &Server{queries: q, logger: logger}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	s.router.HandleFunc("/health", s.health).Methods("GET")
	s.router.HandleFunc("/listings", s.listListings).Methods("GET")
	s.router.HandleFunc("/listings/{id}", s.getListing).Methods("GET")
	s.router.HandleFunc("/listings/{id}/comps", s.getComps).Methods("GET")
	s.router.HandleFunc("/listings/{id}/estimate", s.getEstimate).Methods("GET")
	s.router.HandleFunc("/market/insights", s.getInsights).Methods("GET")
	s.router.HandleFunc("/filters", s.getFilters).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "route not found")
	})

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.errorRecoveryMiddleware)
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("[api] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

// statusFor maps query errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrModelUnavailable), errors.Is(err, models.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
