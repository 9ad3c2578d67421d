// Package api exposes the reconciliation engine over HTTP for the entry UI
// and dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/castlecab/backoffice/internal/api/dto"
	"github.com/castlecab/backoffice/internal/application/service"
	"github.com/castlecab/backoffice/internal/domain/floats"
	"github.com/castlecab/backoffice/internal/domain/recon"
	"github.com/castlecab/backoffice/internal/domain/splitter"
	"github.com/castlecab/backoffice/internal/infrastructure/config"
	"github.com/castlecab/backoffice/internal/infrastructure/storage"
)

const dateLayout = "2006-01-02"

// defaultActor labels audited actions when the client sends no actor.
const defaultActor = "operator"

// Server is the HTTP API server.
type Server struct {
	cfg     *config.Config
	svc     *service.ReconService
	storage storage.Repository
	logger  *slog.Logger

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, svc *service.ReconService, store storage.Repository, logger *slog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		svc:     svc,
		storage: store,
		logger:  logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", s.health)

	api := router.Group("/api")
	{
		api.GET("/stats", s.getStats)

		api.POST("/receipts", s.createReceipt)
		api.GET("/receipts", s.listReceipts)
		api.GET("/receipts/:id", s.getReceipt)
		api.GET("/receipts/:id/duplicates", s.getDuplicates)
		api.GET("/receipts/:id/bank-matches", s.getBankMatches)
		api.POST("/receipts/:id/link", s.linkReceipt)
		api.DELETE("/receipts/:id/link", s.unlinkReceipt)
		api.POST("/receipts/:id/splits/suggest", s.suggestSplit)
		api.POST("/receipts/:id/splits", s.proposeSplit)
		api.GET("/receipts/:id/splits", s.getSplits)
		api.DELETE("/receipts/:id/splits", s.removeSplit)

		api.POST("/transactions", s.createTransaction)
		api.GET("/transactions", s.listTransactions)
		api.GET("/transactions/:id", s.getTransaction)
		api.GET("/transactions/:id/matches", s.getReceiptMatches)

		api.POST("/vendors/resolve", s.resolveVendor)
		api.GET("/vendors", s.listVendors)
		api.GET("/vendors/:id", s.getVendor)
		api.POST("/vendors/merge", s.mergeVendors)

		api.POST("/floats", s.createFloat)
		api.GET("/floats", s.listFloats)
		api.GET("/floats/:id", s.getFloat)
		api.POST("/floats/:id/receipts", s.attributeReceipt)
		api.DELETE("/floats/:id/receipts/:receiptID", s.detachReceipt)
		api.POST("/floats/:id/return", s.returnFloat)
		api.POST("/floats/:id/reconcile", s.reconcileFloat)
		api.POST("/floats/:id/reopen", s.reopenFloat)

		api.GET("/audit", s.listAudit)
	}

	return router
}

// Start runs the server on the configured port, blocking until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	s.logger.Info("starting API server", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.svc.Stats()
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) listAudit(c *gin.Context) {
	entries, err := s.storage.ListAudit(c.Query("entity_kind"), c.Query("entity_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// writeError maps domain errors to HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var notFound *recon.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, dto.NotFoundError(notFound.Kind))
		return
	}

	var linked *recon.AlreadyLinkedError
	if errors.As(err, &linked) {
		c.JSON(http.StatusConflict, dto.ConflictError(linked.Error()))
		return
	}

	var transition *floats.TransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusConflict, dto.ConflictError(transition.Error()))
		return
	}

	var invalid *recon.InvalidAmountError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, dto.ValidationError(invalid.Error()))
		return
	}

	var mismatch *recon.SplitSumMismatchError
	if errors.As(err, &mismatch) {
		c.JSON(http.StatusBadRequest, dto.SplitMismatchError(
			mismatch.Error(),
			mismatch.GrossAmount.StringFixed(2),
			mismatch.SplitTotal.StringFixed(2),
			mismatch.Difference.StringFixed(2)))
		return
	}

	if errors.Is(err, splitter.ErrTooFewLines) {
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
		return
	}

	s.logger.Error("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err)
	c.JSON(http.StatusInternalServerError, dto.InternalError())
}

func (s *Server) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.BadRequestError(msg))
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

func parseAmount(value string) (decimal.Decimal, error) {
	return decimal.NewFromString(value)
}
