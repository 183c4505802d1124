package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cadencehq/cadence"
	"github.com/cadencehq/cadence/api/middleware"
	model2 "github.com/cadencehq/cadence/api/model"
	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
)

type Api struct {
	cadence *cadence.Cadence
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/stores", a.CreateStore)
	router.GET("/stores", a.GetAllStores)
	router.GET("/stores/:id", a.GetStore)
	router.GET("/stores/:id/orders", a.GetStoreOrders)
	router.GET("/stores/:id/activities", a.GetStoreActivities)

	router.POST("/orders", a.RecordOrder)
	router.GET("/orders/:id", a.GetOrder)

	router.POST("/activities", a.LogActivity)
	router.GET("/activities/:id", a.GetActivity)

	router.POST("/events", a.QueueRecordEvent)
	router.POST("/ticks", a.QueueTick)

	router.GET("/tasks", a.GetTasks)
	router.GET("/reports/weekly", a.GetWeeklyReport)
	router.POST("/policies/recompute", a.RecomputePolicies)
	return a.router
}

func NewAPI(c *cadence.Cadence) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, "server running...")
	})

	return &Api{cadence: c, router: r}
}

// respondWithError writes err with the status its APIError code maps to. Orphan records
// are returned in full so the caller sees the suggested store.
func respondWithError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var orphan engine.OrphanRecord
	if errors.As(err, &orphan) {
		body["orphan"] = orphan
	}
	c.JSON(apierror.MapErrorToHTTPStatus(err), body)
}

// queryTime reads an optional date or timestamp query parameter, defaulting to the current
// time in the schedule timezone.
func queryTime(c *gin.Context, key string) (time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return cadence.LocalNow(), nil
	}
	return model2.ParseDate(value)
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	value := c.Query(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
