package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"collabhub/internal/handler"
	"collabhub/internal/httpserver/auth"
	"collabhub/pkg/mq"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	phaseHandler *handler.PhaseHandler,
	categoryHandler *handler.CategoryHandler,
	costHandler *handler.CostHandler,
	pitchingHandler *handler.PitchingHandler,
	notificationHandler *handler.NotificationHandler,
	paymentHandler *handler.PaymentHandler,
	jwtSecret string,
	db *pgxpool.Pool,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if !publisher.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Gateways redirect here without a bearer token; the signature check
	// inside the adapter is the authentication.
	r.POST("/payment/callback/:gateway", paymentHandler.Callback)

	// Protected
	authed := r.Group("/")
	authed.Use(auth.Middleware(jwtSecret))
	{
		authed.POST("/projects/:id/phases", phaseHandler.CreatePhase)
		authed.PATCH("/phases/:id/status", phaseHandler.ChangeStatus)
		authed.DELETE("/phases/:id", phaseHandler.Delete)
		authed.GET("/phases/:id/can-finish", phaseHandler.CanFinish)

		authed.POST("/phases/:id/categories", categoryHandler.Create)
		authed.PATCH("/categories/:id/status", categoryHandler.ChangeStatus)
		authed.PATCH("/categories/:id/actual-result", categoryHandler.SetActualResult)

		authed.POST("/phases/:id/categories/:categoryID/cost", costHandler.Create)
		authed.PATCH("/costs/:id/actual", costHandler.SetActualCost)
		authed.PATCH("/costs/:id/status", costHandler.ChangeStatus)
		authed.POST("/costs/:id/evidence", costHandler.CreateEvidence)
		authed.GET("/costs/:id/evidence", costHandler.ListEvidence)

		authed.POST("/projects/:id/pitchings", pitchingHandler.Register)
		authed.POST("/projects/:id/pitchings/:pid/select", pitchingHandler.Select)

		authed.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
