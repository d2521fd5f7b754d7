package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/errsight/errsight/internal/ingest"
	"github.com/errsight/errsight/internal/store"
)

// registerRoutes sets up the public and admin routes.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	v1 := router.Group("/api/v1")
	v1.POST("/ingest", handleIngest(opts.Service))
	v1.POST("/trial/llm", handleTrialLLM(opts.Service))
	v1.POST("/trial/mail", handleTrialMail(opts.Service))

	admin := v1.Group("/admin", adminAuth(opts.AdminToken))
	admin.POST("/projects", handleProjectCreate(opts.Projects))
	admin.GET("/projects", handleProjectList(opts.Projects))
	admin.GET("/projects/:id", handleProjectGet(opts.Projects))
	admin.PUT("/projects/:id", handleProjectUpdate(opts.Projects))
	admin.DELETE("/projects/:id", handleProjectDelete(opts.Projects))
	admin.GET("/projects/:id/logs", handleProjectLogs(opts.Logs))
	admin.POST("/projects/:id/rotate-key", handleRotateKey(opts.Projects))
}

// adminAuth guards the admin surface with a static token header. An
// empty configured token leaves the surface open for first-run setup.
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			return
		}
		if c.GetHeader("X-Admin-Token") != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "invalid admin token",
			})
		}
	}
}

type ingestRequest struct {
	APIKeyID string `json:"api_key_id"`
	APIKey   string `json:"api_key"`
	Error    string `json:"error"`
	Location string `json:"location"`
	Stack    string `json:"stack"`
}

func handleIngest(svc *ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Report(c.Request.Context(), ingest.ReportRequest{
			APIKeyID: req.APIKeyID,
			APIKey:   req.APIKey,
			Error:    req.Error,
			Location: req.Location,
			Stack:    req.Stack,
		})
		if err != nil {
			failFromService(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status":   "success",
			"log_id":   res.LogID,
			"analysis": res.Analysis,
		})
	}
}

type trialLLMRequest struct {
	APIKeyID  string `json:"api_key_id"`
	APIKey    string `json:"api_key"`
	Provider  string `json:"provider"`
	LLMAPIKey string `json:"llm_api_key"`
	Model     string `json:"model"`
}

func handleTrialLLM(svc *ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trialLLMRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.TrialLLM(c.Request.Context(), ingest.TrialLLMRequest{
			APIKeyID:  req.APIKeyID,
			APIKey:    req.APIKey,
			Provider:  req.Provider,
			LLMAPIKey: req.LLMAPIKey,
			Model:     req.Model,
		})
		if err != nil {
			failFromService(c, err)
			return
		}

		resp := gin.H{
			"status":       "success",
			"data":         "LLM configuration verified",
			"sample_error": res.SampleError,
			"analysis":     res.Analysis,
		}
		if res.LogID != "" {
			resp["log_id"] = res.LogID
		}
		c.JSON(http.StatusOK, resp)
	}
}

type trialMailRequest struct {
	APIKeyID string `json:"api_key_id"`
	APIKey   string `json:"api_key"`
	SMTPUser string `json:"smtp_user"`
	SMTPPass string `json:"smtp_pass"`
	EmailTo  string `json:"email_to"`
}

func handleTrialMail(svc *ingest.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req trialMailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}

		err := svc.TrialMail(c.Request.Context(), ingest.TrialMailRequest{
			APIKeyID: req.APIKeyID,
			APIKey:   req.APIKey,
			SMTPUser: req.SMTPUser,
			SMTPPass: req.SMTPPass,
			EmailTo:  req.EmailTo,
		})
		if err != nil {
			failFromService(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   "test email sent",
		})
	}
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"status": "error", "error": msg})
}

// failFromService maps orchestrator errors onto status codes. Unknown
// credentials answer a uniform 404 so callers cannot probe which half
// of the pair was wrong.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ingest.ErrMissingErrorText),
		errors.Is(err, ingest.ErrMissingLLMConfig),
		errors.Is(err, ingest.ErrMissingMailConfig):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		fail(c, http.StatusNotFound, "invalid api credentials")
	default:
		fail(c, http.StatusInternalServerError, err.Error())
	}
}
