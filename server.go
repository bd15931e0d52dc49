package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/modaflow/atelier_backend/config"
	"github.com/modaflow/atelier_backend/middlewares"
	"github.com/modaflow/atelier_backend/models"
	"github.com/modaflow/atelier_backend/shipmentsync"
	"github.com/modaflow/atelier_backend/utils"
	"github.com/modaflow/atelier_backend/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("atelier-production")

func materialRequestPipeline() *workflow.MaterialRequestPipeline {
	return &workflow.MaterialRequestPipeline{
		DB:       config.GetDB(),
		Logger:   config.GetLogger(),
		Dispatch: config.PublishMaterialDispatch,
	}
}

func shipmentPipeline() *workflow.ShipmentPipeline {
	return &workflow.ShipmentPipeline{DB: config.GetDB(), Logger: config.GetLogger()}
}

func sewingOrderPipeline() *workflow.SewingOrderPipeline {
	return &workflow.SewingOrderPipeline{DB: config.GetDB(), Logger: config.GetLogger()}
}

func productDevelopment() *workflow.ProductDevelopmentWorkflow {
	return &workflow.ProductDevelopmentWorkflow{DB: config.GetDB(), Logger: config.GetLogger()}
}

func financeEngine() *workflow.FinanceEngine {
	return &workflow.FinanceEngine{DB: config.GetDB(), Logger: config.GetLogger()}
}

// respondError maps domain errors onto HTTP statuses. Ownership mismatches
// surface as 404 so callers cannot probe which ids exist.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *utils.ValidationError
		forbiddenErr  *utils.ForbiddenError
		immutableErr  *utils.ImmutableStateError
		conflictErr   *utils.ConflictError
		depErr        *utils.DependencyError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, utils.ErrorUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":           "forbidden",
			"role":            forbiddenErr.RawRole,
			"normalized_role": forbiddenErr.NormalizedRole,
			"allowed":         forbiddenErr.Allowed,
		})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &immutableErr):
		c.JSON(http.StatusConflict, gin.H{"error": immutableErr.Error()})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      conflictErr.Error(),
			"from_state": conflictErr.FromState,
			"to_state":   conflictErr.ToState,
		})
	case errors.As(err, &depErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": depErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
	c.Error(err)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func createMaterialRequestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewMaterialRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		request, err := materialRequestPipeline().Create(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, request)
	}
}

func listMaterialRequestsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok {
			respondError(c, utils.ErrorUnauthenticated)
			return
		}
		db := config.GetDB()

		var requests []*models.MaterialRequest
		var err error
		role, _ := utils.GetRoleFromContext(ctx)
		isSuper, _ := utils.GetIsSuperadminFromContext(ctx)
		switch {
		case isSuper:
			err = db.WithContext(ctx).Order("id desc").Find(&requests).Error
		case role == string(models.RoleSupplier):
			requests, err = utils.FetchOwnedModels[models.MaterialRequest](ctx, db, "supplier_id", userId)
		case role == string(models.RoleManufacturer):
			requests, err = utils.FetchOwnedModels[models.MaterialRequest](ctx, db, "manufacturer_id", userId)
		default:
			requests, err = utils.FetchOwnedModels[models.MaterialRequest](ctx, db, "requested_by", userId)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": requests})
	}
}

func materialRequestTransitionHandler(apply func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		out, err := apply(c.Request.Context(), materialRequestPipeline(), id, c)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

type messageBody struct {
	Body string `json:"body"`
}

func requestMessagesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		comments, err := models.GetComments(c.Request.Context(), config.GetDB(), "material_requests", id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": comments})
	}
}

func confirmShipmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var body struct {
			QuantityPieces *int `json:"quantity_pieces"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		shipment, order, err := shipmentPipeline().Confirm(c.Request.Context(), id, body.QuantityPieces)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"shipment": shipment, "sewing_order": order})
	}
}

func reportShipmentProblemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var input workflow.ReportProblemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		shipment, err := shipmentPipeline().ReportProblem(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, shipment)
	}
}

func listShipmentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok {
			respondError(c, utils.ErrorUnauthenticated)
			return
		}
		db := config.GetDB()

		var shipments []*models.MaterialShipment
		var err error
		role, _ := utils.GetRoleFromContext(ctx)
		isSuper, _ := utils.GetIsSuperadminFromContext(ctx)
		switch {
		case isSuper:
			err = db.WithContext(ctx).Order("id desc").Find(&shipments).Error
		case role == string(models.RoleSupplier):
			shipments, err = utils.FetchOwnedModels[models.MaterialShipment](ctx, db, "supplier_id", userId)
		default:
			shipments, err = utils.FetchOwnedModels[models.MaterialShipment](ctx, db, "manufacturer_id", userId)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": shipments})
	}
}

func listSewingOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok {
			respondError(c, utils.ErrorUnauthenticated)
			return
		}
		db := config.GetDB()

		var orders []*models.SewingOrder
		var err error
		if isSuper, _ := utils.GetIsSuperadminFromContext(ctx); isSuper {
			err = db.WithContext(ctx).Order("id desc").Find(&orders).Error
		} else {
			orders, err = utils.FetchOwnedModels[models.SewingOrder](ctx, db, "manufacturer_id", userId)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": orders})
	}
}

func startSewingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		order, err := sewingOrderPipeline().Start(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func completeSewingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var body struct {
			ProofDocumentUrl string `json:"proof_document_url"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		order, err := sewingOrderPipeline().Complete(c.Request.Context(), id, body.ProofDocumentUrl)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func createProductModelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewProductModel
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		model, err := productDevelopment().Create(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, model)
	}
}

func updateProductModelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var input workflow.UpdateProductModel
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		model, err := productDevelopment().Edit(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, model)
	}
}

func advanceStageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var input workflow.AdvanceStageInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		model, err := productDevelopment().AdvanceStage(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, model)
	}
}

func listProductModelsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		db := config.GetDB()
		var items []*models.ProductModel
		if err := db.WithContext(ctx).Preload("Images").Order("id desc").Find(&items).Error; err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func getProductModelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		model, err := utils.FetchSingleModel[models.ProductModel](c.Request.Context(), config.GetDB(), id, "Images")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, model)
	}
}

func financialReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.financial")
		defer span.End()
		report, err := financeEngine().BuildReport(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func financialReportExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "reports.financial.export")
		defer span.End()
		report, err := financeEngine().BuildReport(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=financial-report.xlsx")
		if err := workflow.WriteReportXlsx(report, c.Writer); err != nil {
			config.LogError(config.GetLogger(), "server.go", "financialReportExportHandler", "WriteReportXlsx", nil, err)
		}
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.Request.URL.Path,
				"status":         c.Writer.Status(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Auth and loaders resolve the DB lazily: it is nil until the
	// post-listen connect finishes, and the readiness gate above shields
	// these paths until then.
	r.Use(func(c *gin.Context) { middlewares.AuthMiddleware(config.GetDB())(c) })
	r.Use(func(c *gin.Context) { middlewares.LoaderMiddleware(config.GetDB())(c) })
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/material-requests", middlewares.RequireRoles(models.RoleDesigner), createMaterialRequestHandler())
	r.GET("/material-requests", listMaterialRequestsHandler())
	r.GET("/material-requests/:id/messages", requestMessagesHandler())
	r.POST("/material-requests/:id/messages", materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			var body messageBody
			if err := c.ShouldBindJSON(&body); err != nil {
				return nil, utils.NewValidationError("invalid request")
			}
			return p.AddMessage(ctx, id, body.Body)
		}))

	supplierOnly := middlewares.RequireRoles(models.RoleSupplier)
	r.POST("/material-requests/:id/accept", supplierOnly, materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			return p.Accept(ctx, id)
		}))
	r.POST("/material-requests/:id/reject", supplierOnly, materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			var body rejectRequestBody
			if err := c.ShouldBindJSON(&body); err != nil {
				return nil, utils.NewValidationError("invalid request")
			}
			return p.Reject(ctx, id, body.Reason)
		}))
	r.POST("/material-requests/:id/prepare-shipment", supplierOnly, materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			var input workflow.PrepareShipmentInput
			if err := c.ShouldBindJSON(&input); err != nil {
				return nil, utils.NewValidationError("invalid request")
			}
			return p.PrepareShipment(ctx, id, &input)
		}))
	r.POST("/material-requests/:id/send", supplierOnly, materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			var input workflow.SendShipmentInput
			if c.Request.ContentLength > 0 {
				if err := c.ShouldBindJSON(&input); err != nil {
					return nil, utils.NewValidationError("invalid request")
				}
			}
			return p.Send(ctx, id, &input)
		}))
	r.POST("/material-requests/:id/complete", supplierOnly, materialRequestTransitionHandler(
		func(ctx context.Context, p *workflow.MaterialRequestPipeline, id int, c *gin.Context) (any, error) {
			return p.Complete(ctx, id)
		}))

	manufacturerOnly := middlewares.RequireRoles(models.RoleManufacturer)
	r.GET("/shipments", listShipmentsHandler())
	r.POST("/shipments/:id/confirm", manufacturerOnly, confirmShipmentHandler())
	r.POST("/shipments/:id/report-problem", manufacturerOnly, reportShipmentProblemHandler())

	r.GET("/sewing-orders", listSewingOrdersHandler())
	r.POST("/sewing-orders/:id/start", manufacturerOnly, startSewingOrderHandler())
	r.POST("/sewing-orders/:id/complete", manufacturerOnly, completeSewingOrderHandler())

	r.GET("/product-models", listProductModelsHandler())
	r.GET("/product-models/:id", getProductModelHandler())
	r.POST("/product-models", middlewares.RequireRoles(models.RoleDesigner), createProductModelHandler())
	r.PATCH("/product-models/:id", middlewares.RequireRoles(models.RoleDesigner), updateProductModelHandler())
	r.POST("/product-models/:id/advance-stage", middlewares.RequireRoles(models.RoleTester, models.RoleDesigner), advanceStageHandler())

	accountantOnly := middlewares.RequireRoles(models.RoleAccountant)
	r.GET("/reports/financial", accountantOnly, financialReportHandler())
	r.GET("/reports/financial/export", accountantOnly, financialReportExportHandler())

	// Pub/Sub push delivery of dispatch events (no auth header: the broker
	// calls this; restrict via infrastructure or disable with env).
	r.POST("/pubsub/dispatch", func(c *gin.Context) {
		worker := &shipmentsync.Worker{DB: config.GetDB(), Logger: logger}
		worker.PushHandler()(c)
	})

	r.NoRoute(customNotFoundHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow running it as a
	// separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable(db)
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// READ COMMITTED keeps the compare-and-swap transitions from tripping
	// over gap locks under concurrent confirms.
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on port ", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
