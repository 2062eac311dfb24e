// Package httpd serves the trip API over HTTP, plus a websocket
// stream of published ops and the Prometheus metrics.
package httpd

import (
	"errors"
	"net/http"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/service"
	"github.com/firstpersontravel/charter-sub005/store"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// EventRequest is the body of POST /trips/:id/events.
type EventRequest struct {
	Event core.Params `json:"event"`
	Role  string      `json:"role,omitempty"`
}

// ActionRequest is the body of POST /trips/:id/actions.
type ActionRequest struct {
	Name   string      `json:"name"`
	Params core.Params `json:"params,omitempty"`
	Role   string      `json:"role,omitempty"`
}

// ResultResponse reports what a dispatch did.
type ResultResponse struct {
	Ops       core.Ops                `json:"ops"`
	Scheduled []*core.ScheduledAction `json:"scheduled"`
}

// NewRouter builds the gin engine for the service.
func NewRouter(svc *service.Service) *gin.Engine {
	h := &handler{svc: svc, logger: svc.Logger}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.logRequests)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if g := svc.Metrics.Gatherer(); g != nil {
		gatherer = g
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	r.GET("/ws", h.stream)

	trips := r.Group("/trips")
	{
		trips.GET("", h.listTrips)
		trips.GET("/:id", h.getTrip)
		trips.PUT("/:id", h.putTrip)
		trips.POST("/:id/events", h.dispatch)
		trips.POST("/:id/actions", h.runAction)
		trips.POST("/:id/players/:player/location", h.updateLocation)
		trips.GET("/:id/scheduled", h.scheduled)
	}

	return r
}

func (h *handler) logRequests(c *gin.Context) {
	then := time.Now()
	c.Next()
	h.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(then)))
}

// fail maps an error to a status.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var (
		unknown *core.UnknownAction
		conf    *core.ConfigurationError
		eval    *core.EvaluationError
	)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrNoPlayer):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoScript):
		status = http.StatusConflict
	case errors.As(err, &unknown), errors.As(err, &conf), errors.As(err, &eval):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *handler) listTrips(c *gin.Context) {
	trips, err := h.svc.Store.ListTrips(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trips)
}

func (h *handler) getTrip(c *gin.Context) {
	trip, err := h.svc.Store.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

func (h *handler) putTrip(c *gin.Context) {
	var trip core.Trip
	if err := c.ShouldBindJSON(&trip); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	trip.ID = c.Param("id")
	if _, have := h.svc.Script(trip.ScriptName); !have {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown script " + trip.ScriptName})
		return
	}
	if err := h.svc.Store.PutTrip(c.Request.Context(), &trip); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, &trip)
}

func respond(c *gin.Context, result *core.Result) {
	c.JSON(http.StatusOK, &ResultResponse{
		Ops:       core.Ops(result.ResultOps),
		Scheduled: result.ScheduledActions,
	})
}

func (h *handler) dispatch(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Event.Type() == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event needs a type"})
		return
	}
	result, err := h.svc.Dispatch(c.Request.Context(), c.Param("id"), req.Event, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, result)
}

func (h *handler) runAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action needs a name"})
		return
	}
	action := &core.ScheduledAction{Name: req.Name, Params: req.Params}
	result, err := h.svc.RunAction(c.Request.Context(), c.Param("id"), action, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, result)
}

func (h *handler) updateLocation(c *gin.Context) {
	var loc core.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if loc.Timestamp.IsZero() {
		loc.Timestamp = h.svc.Clock()
	}
	results, err := h.svc.UpdateLocation(c.Request.Context(), c.Param("id"), c.Param("player"), loc)
	if err != nil {
		fail(c, err)
		return
	}
	acc := &ResultResponse{Ops: core.Ops{}, Scheduled: []*core.ScheduledAction{}}
	for _, r := range results {
		acc.Ops = append(acc.Ops, r.ResultOps...)
		acc.Scheduled = append(acc.Scheduled, r.ScheduledActions...)
	}
	c.JSON(http.StatusOK, acc)
}

func (h *handler) scheduled(c *gin.Context) {
	sas, err := h.svc.Store.PendingScheduled(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sas)
}

// stream sends every Published, or only those of the trip given
// by the "trip" query parameter, as JSON text messages.
func (h *handler) stream(c *gin.Context) {
	// Subscribe first so that nothing published after the
	// handshake is missed.
	published, cancel := h.svc.Subscribe(32)
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	tripID := c.Query("trip")

	// The reader only notices when the client goes away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case p, ok := <-published:
			if !ok {
				return
			}
			if tripID != "" && p.TripID != tripID {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(p); err != nil {
				h.logger.Debug("ws write", zap.Error(err))
				return
			}
		}
	}
}
