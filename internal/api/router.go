package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/soaringjerry/epds/internal/middleware"
	"github.com/soaringjerry/epds/internal/models"
	"github.com/soaringjerry/epds/internal/platform/logger"
	"github.com/soaringjerry/epds/internal/report"
	"github.com/soaringjerry/epds/internal/services"
)

var tracer = otel.Tracer("github.com/soaringjerry/epds/internal/api")

type Router struct {
	sessions *services.SessionService
	tokens   *middleware.SessionTokens
	bands    []services.RiskBand
	render   *report.Renderer
	log      *logger.Logger
}

func NewRouter(sessions *services.SessionService, tokens *middleware.SessionTokens, bands []services.RiskBand, render *report.Renderer, log *logger.Logger) *Router {
	return &Router{sessions: sessions, tokens: tokens, bands: bands, render: render, log: log.With("component", "api")}
}

func (rt *Router) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.Use(middleware.WithSession(rt.tokens))
	api.GET("/questions", rt.handleQuestions)
	api.GET("/labels", rt.handleLabels)
	api.POST("/sessions", rt.handleCreate)

	sess := api.Group("/session", middleware.RequireSession())
	sess.GET("", rt.handleView)
	sess.DELETE("", rt.handleEnd)
	sess.POST("/start", rt.handleStart)
	sess.POST("/next", rt.handleNext)
	sess.POST("/back", rt.handleBack)
	sess.POST("/restart", rt.handleRestart)
	sess.GET("/gauge.png", rt.handleGauge)
	sess.GET("/report.pdf", rt.handleReport)
}

type createResponse struct {
	Token string         `json:"token"`
	View  *services.View `json:"view"`
}

type profileRequest struct {
	Name    string `json:"name"`
	Age     *int   `json:"age"`
	Place   string `json:"place"`
	Support string `json:"support"`
}

type nextRequest struct {
	Choice string `json:"choice"`
}

// GET /api/questions
func (rt *Router) handleQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"questions": services.Questions(), "max_value": models.MaxAnswerValue})
}

// GET /api/labels
func (rt *Router) handleLabels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"labels": rt.bands})
}

// POST /api/sessions
func (rt *Router) handleCreate(c *gin.Context) {
	v, err := rt.sessions.Create(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, nil)
		return
	}
	tok, err := rt.tokens.Sign(v.SessionID)
	if err != nil {
		respondServiceError(c, err, nil)
		return
	}
	rt.tokens.SetCookie(c, tok)
	rt.log.Info("session created", "session_id", v.SessionID)
	c.JSON(http.StatusCreated, createResponse{Token: tok, View: v})
}

// GET /api/session
func (rt *Router) handleView(c *gin.Context) {
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	v, err := rt.sessions.View(c.Request.Context(), id)
	rt.respondView(c, v, err)
}

// DELETE /api/session
func (rt *Router) handleEnd(c *gin.Context) {
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	if err := rt.sessions.End(c.Request.Context(), id); err != nil {
		rt.respondView(c, nil, err)
		return
	}
	rt.tokens.ClearCookie(c)
	c.Status(http.StatusNoContent)
}

// POST /api/session/start
func (rt *Router) handleStart(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	v, err := rt.sessions.StartInput(c.Request.Context(), id, services.ProfileInput{
		Name:    req.Name,
		Age:     req.Age,
		Place:   req.Place,
		Support: models.FamilySupport(req.Support),
	})
	rt.respondTransition(c, v, err)
}

// POST /api/session/next
func (rt *Router) handleNext(c *gin.Context) {
	var req nextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	v, err := rt.sessions.Next(c.Request.Context(), id, req.Choice)
	rt.respondTransition(c, v, err)
}

// POST /api/session/back
func (rt *Router) handleBack(c *gin.Context) {
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	v, err := rt.sessions.Back(c.Request.Context(), id)
	rt.respondTransition(c, v, err)
}

// POST /api/session/restart
func (rt *Router) handleRestart(c *gin.Context) {
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	v, err := rt.sessions.Restart(c.Request.Context(), id)
	rt.respondTransition(c, v, err)
}

// GET /api/session/gauge.png
func (rt *Router) handleGauge(c *gin.Context) {
	rep, ok := rt.report(c)
	if !ok {
		return
	}
	_, span := tracer.Start(c.Request.Context(), "report.gauge")
	defer span.End()
	png, err := rt.render.Gauge(rep)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render gauge")
		respondServiceError(c, err, nil)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/session/report.pdf
func (rt *Router) handleReport(c *gin.Context) {
	rep, ok := rt.report(c)
	if !ok {
		return
	}
	_, span := tracer.Start(c.Request.Context(), "report.pdf")
	defer span.End()
	span.SetAttributes(attribute.String("risk.label", rep.Prediction.Label))
	_, doc, err := rt.render.Render(rep)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render pdf")
		respondServiceError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rep.FileName()}))
	c.Data(http.StatusOK, "application/pdf", doc)
}

func (rt *Router) report(c *gin.Context) (*services.Report, bool) {
	id, _ := middleware.SessionIDFromContext(c.Request.Context())
	rep, err := rt.sessions.Report(c.Request.Context(), id)
	if err != nil {
		rt.respondView(c, nil, err)
		return nil, false
	}
	return rep, true
}

// respondTransition answers like respondView and, after a successful write,
// re-issues the token so it expires together with the session.
func (rt *Router) respondTransition(c *gin.Context, v *services.View, err error) {
	if err == nil {
		if tok, serr := rt.tokens.Sign(v.SessionID); serr == nil {
			rt.tokens.SetCookie(c, tok)
		} else {
			rt.log.Warn("token refresh failed", "error", serr)
		}
	}
	rt.respondView(c, v, err)
}

func (rt *Router) respondView(c *gin.Context, v *services.View, err error) {
	if err == nil {
		c.JSON(http.StatusOK, v)
		return
	}
	if errors.Is(err, services.ErrSessionNotFound) {
		rt.tokens.ClearCookie(c)
	}
	if se, ok := services.AsServiceError(err); !ok || se.Code == services.ErrorUnavailable {
		rt.log.Error("session request failed", "error", err)
	}
	respondServiceError(c, err, v)
}
