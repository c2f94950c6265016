// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nft-inventory/internal/auth"
	"github.com/nft-inventory/internal/logging"
	"github.com/nft-inventory/internal/models"
	"github.com/nft-inventory/internal/service"
	"github.com/nft-inventory/internal/types"
)

// Service interfaces for dependency injection and testing

// SyncServiceInterface defines the sync service operations the server uses.
type SyncServiceInterface interface {
	Sync(ctx context.Context, uid, address string, policyID types.PolicyID) (*service.SyncResult, error)
	ReadCached(ctx context.Context, uid string, policyID types.PolicyID) (*service.SyncResult, error)
}

// InventoryServiceInterface defines the inventory service operations the
// server uses.
type InventoryServiceInterface interface {
	GetInventory(ctx context.Context, uid, address string) (*service.GroupedInventory, error)
	DeleteAsset(ctx context.Context, uid, assetID, address string) error
	ListAddresses(ctx context.Context, uid string) ([]models.SavedAddress, error)
	AddAddress(ctx context.Context, uid, address, label string) (*models.SavedAddress, error)
	RemoveAddress(ctx context.Context, uid, address string) error
	ListCollections(ctx context.Context, uid string) ([]models.CustomCollection, error)
	ReplaceCollections(ctx context.Context, uid string, collections []models.CustomCollection) error
	Provenance(ctx context.Context, collectionName, localID string) ([]*models.OwnershipTransfer, error)
}

// ClaimServiceInterface defines the claim service operations the server uses.
type ClaimServiceInterface interface {
	Claim(ctx context.Context, uid, address string) (*service.ClaimResult, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	sync       SyncServiceInterface
	inventory  InventoryServiceInterface
	claim      ClaimServiceInterface
	verifier   auth.Verifier
	logger     *logging.Logger
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	syncService SyncServiceInterface,
	inventoryService InventoryServiceInterface,
	claimService ClaimServiceInterface,
	verifier auth.Verifier,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		sync:      syncService,
		inventory: inventoryService,
		claim:     claimService,
		verifier:  verifier,
		logger:    logger,
		config:    config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Set up middleware (order matters!)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Authenticated NFT routes
	api := s.router.PathPrefix("/api/nft").Subrouter()
	api.Use(AuthMiddleware(s.verifier))
	api.Use(RateLimitMiddleware(NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)))

	api.HandleFunc("/assets", s.handleListAssets).Methods("GET")
	api.HandleFunc("/assets", s.handleDeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{collection}/{localId}/provenance", s.handleProvenance).Methods("GET")
	api.HandleFunc("/inventory", s.handleGetInventory).Methods("GET")
	api.HandleFunc("/claim", s.handleClaim).Methods("POST")

	api.HandleFunc("/addresses", s.handleListAddresses).Methods("GET")
	api.HandleFunc("/addresses", s.handleAddAddress).Methods("POST")
	api.HandleFunc("/addresses", s.handleRemoveAddress).Methods("DELETE")

	api.HandleFunc("/collections", s.handleListCollections).Methods("GET")
	api.HandleFunc("/collections", s.handleReplaceCollections).Methods("PUT")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "nft-inventory",
	})
}

// Router exposes the configured router, used by handler tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
