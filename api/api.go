package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/bikeledger/bike"
	"github.com/semanticallynull/bikeledger/customer"
	"github.com/semanticallynull/bikeledger/internal/auth0"
	"github.com/semanticallynull/bikeledger/internal/blockclock"
	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/internal/middleware"
	"github.com/semanticallynull/bikeledger/internal/o11y"
	"github.com/semanticallynull/bikeledger/internal/payments"
	"github.com/semanticallynull/bikeledger/maintenance"
)

// Ledgers are the three ledgers and the guard sharing one store.
type Ledgers struct {
	Guard       *guard.Guard
	Registry    *bike.Registry
	Maintenance *maintenance.Ledger
	Accounts    *customer.Ledger
}

type Options struct {
	// Auth attributes each request to a caller. Required.
	Auth     []gin.HandlerFunc
	Clock    blockclock.Clock
	Profiles auth0.Client
	Payments payments.Verifier

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r        *gin.Engine
	guard    *guard.Guard
	br       *bike.Registry
	ml       *maintenance.Ledger
	cl       *customer.Ledger
	clock    blockclock.Clock
	profiles auth0.Client
	payments payments.Verifier
}

func New(l Ledgers, obs *o11y.Observability, opts Options) *API {
	a := &API{
		r:        gin.New(),
		guard:    l.Guard,
		br:       l.Registry,
		ml:       l.Maintenance,
		cl:       l.Accounts,
		clock:    opts.Clock,
		profiles: opts.Profiles,
		payments: opts.Payments,
	}
	if a.payments == nil {
		a.payments = payments.Accept{}
	}
	// Handlers pass the gin context to the ledgers; let it carry the request
	// span.
	a.r.ContextWithFallback = true

	a.r.Use(gin.Recovery(), middleware.Tracing(), middleware.Logging(obs.Logger), middleware.Metrics(obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "block": a.clock.Now()})
	})

	metrics := promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{})
	if opts.MetricsUsername != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{opts.MetricsUsername: opts.MetricsPassword}), gin.WrapH(metrics))
	} else {
		a.r.GET("/metrics", gin.WrapH(metrics))
	}

	a.r.GET("/registry/owner", a.registryOwnerHandler)
	a.r.GET("/stations/:id", a.stationHandler)
	a.r.GET("/bicycles/:id", a.bicycleHandler)
	a.r.GET("/bicycles/:id/available", a.bicycleAvailableHandler)
	a.r.GET("/bicycles/:id/rate", a.bicycleRateHandler)
	a.r.GET("/bicycles/:id/maintenance", a.scheduleHandler)
	a.r.GET("/bicycles/:id/maintenance/due", a.maintenanceDueHandler)
	a.r.GET("/bicycles/:id/maintenance/stats", a.maintenanceStatsHandler)
	a.r.GET("/bicycles/:id/maintenance/history", a.maintenanceHistoryHandler)
	a.r.GET("/bicycles/:id/maintenance/records/:recordId", a.recordHandler)
	a.r.GET("/bicycles/:id/issues", a.issueHistoryHandler)
	a.r.GET("/bicycles/:id/issues/critical", a.criticalIssuesHandler)
	a.r.GET("/issues/:id", a.issueHandler)
	a.r.GET("/users/:id", a.userHandler)
	a.r.GET("/users/:id/payment-method", a.paymentMethodHandler)
	a.r.GET("/users/:id/verification-level", a.verificationLevelHandler)
	a.r.GET("/users/:id/balance", a.balanceHandler)
	a.r.GET("/users/:id/documents/:type", a.documentHandler)
	a.r.GET("/users/:id/can-rent", a.canRentHandler)

	protected := a.r.Group("/")
	protected.Use(opts.Auth...)
	{
		protected.PUT("/registry/owner", a.setRegistryOwnerHandler)

		protected.POST("/stations", a.registerStationHandler)
		protected.POST("/bicycles", a.registerBicycleHandler)
		protected.PUT("/bicycles/:id/status", a.bicycleStatusHandler)
		protected.PUT("/bicycles/:id/location", a.bicycleLocationHandler)
		protected.POST("/bicycles/:id/serviced", a.bicycleServicedHandler)
		protected.POST("/bicycles/:id/statistics", a.bicycleStatisticsHandler)
		protected.DELETE("/bicycles/:id", a.removeBicycleHandler)
		protected.GET("/bicycles/:id/rentable", a.rentableHandler)

		protected.POST("/bicycles/:id/maintenance", a.initializeScheduleHandler)
		protected.PUT("/bicycles/:id/maintenance", a.updateScheduleHandler)
		protected.PUT("/bicycles/:id/maintenance/status", a.scheduleStatusHandler)
		protected.POST("/bicycles/:id/maintenance/records", a.recordMaintenanceHandler)
		protected.POST("/bicycles/:id/maintenance/overdue", a.flagOverdueHandler)
		protected.POST("/bicycles/:id/maintenance/usage", a.usageHandler)
		protected.POST("/bicycles/:id/issues", a.reportIssueHandler)
		protected.PUT("/issues/:id/status", a.issueStatusHandler)
		protected.POST("/issues/:id/resolve", a.resolveIssueHandler)

		protected.POST("/me", a.registerUserHandler)
		protected.PUT("/me", a.updateProfileHandler)
		protected.PUT("/me/active", a.setActiveHandler)
		protected.POST("/me/payment-method", a.addPaymentMethodHandler)
		protected.DELETE("/me/payment-method", a.removePaymentMethodHandler)
		protected.POST("/me/deposits", a.depositHandler)
		protected.POST("/me/withdrawals", a.withdrawHandler)
		protected.POST("/me/documents", a.submitDocumentHandler)
		protected.PUT("/users/:id/verification-level", a.updateVerificationLevelHandler)
		protected.POST("/users/:id/charges", a.chargeHandler)
		protected.PUT("/users/:id/documents/:type", a.verifyDocumentHandler)
		protected.POST("/users/:id/riding-stats", a.ridingStatsHandler)
		protected.PUT("/users/:id/reputation", a.reputationHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

// call attributes the operation to the authenticated caller at the current
// block.
func (a *API) call(c *gin.Context) (guard.Call, bool) {
	caller, ok := middleware.Caller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
		return guard.Call{}, false
	}
	return guard.Call{Caller: caller, Now: a.clock.Now()}, true
}

// bind decodes the JSON body into req, answering 400 itself on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLogger(c).InfoContext(c, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return false
	}
	return true
}

type ownerRequest struct {
	Owner string `json:"owner" binding:"required"`
}

func (a *API) registryOwnerHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"owner": a.guard.Owner()})
}

func (a *API) setRegistryOwnerHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req ownerRequest
	if !bind(c, &req) {
		return
	}

	if err := a.guard.SetOwner(c, call, req.Owner); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": req.Owner})
}
