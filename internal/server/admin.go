package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/errsight/errsight/internal/apikey"
	"github.com/errsight/errsight/internal/models"
	"github.com/errsight/errsight/internal/store"
)

// projectView is the admin representation of a project. Secrets are
// masked; plaintext credentials appear only in create and rotate
// responses.
type projectView struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	LLMProvider string    `json:"llm_provider"`
	LLMAPIKey   string    `json:"llm_api_key"`
	LLMModel    string    `json:"llm_model"`
	SMTPUser    string    `json:"smtp_user"`
	SMTPPass    string    `json:"smtp_pass"`
	EmailTo     string    `json:"email_to"`
	APIKeyID    string    `json:"api_key_id"`
	APIKey      string    `json:"api_key"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewOf(p *models.Project) projectView {
	return projectView{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		LLMProvider: p.LLMProvider,
		LLMAPIKey:   maskIfSet(p.LLMAPIKey),
		LLMModel:    p.LLMModel,
		SMTPUser:    p.SMTPUser,
		SMTPPass:    maskIfSet(p.SMTPPass),
		EmailTo:     p.EmailTo,
		APIKeyID:    p.APIKeyID,
		APIKey:      maskIfSet(p.APIKey),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func maskIfSet(s string) string {
	if s == "" {
		return ""
	}
	return apikey.Mask(s)
}

type projectCreateRequest struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	LLMProvider string `json:"llm_provider"`
	LLMAPIKey   string `json:"llm_api_key"`
	LLMModel    string `json:"llm_model"`
	SMTPUser    string `json:"smtp_user"`
	SMTPPass    string `json:"smtp_pass"`
	EmailTo     string `json:"email_to"`
}

func handleProjectCreate(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req projectCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			fail(c, http.StatusBadRequest, "name is required")
			return
		}
		if req.LLMProvider != "" && !validProvider(req.LLMProvider) {
			fail(c, http.StatusBadRequest, "unsupported llm provider")
			return
		}

		p := &models.Project{
			OwnerID:     req.OwnerID,
			Name:        req.Name,
			LLMProvider: req.LLMProvider,
			LLMAPIKey:   req.LLMAPIKey,
			LLMModel:    req.LLMModel,
			SMTPUser:    req.SMTPUser,
			SMTPPass:    req.SMTPPass,
			EmailTo:     req.EmailTo,
		}
		if err := projects.Create(c.Request.Context(), p); err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}

		// The only response that carries the plaintext secret.
		c.JSON(http.StatusCreated, gin.H{
			"status":     "success",
			"project":    viewOf(p),
			"api_key_id": p.APIKeyID,
			"api_key":    p.APIKey,
		})
	}
}

func handleProjectList(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := projects.List(c.Request.Context(), c.Query("owner_id"))
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}

		views := make([]projectView, len(list))
		for i := range list {
			views[i] = viewOf(&list[i])
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "projects": views})
	}
}

func handleProjectGet(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := projects.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			failFromStore(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "project": viewOf(p)})
	}
}

type projectUpdateRequest struct {
	Name        *string `json:"name"`
	LLMProvider *string `json:"llm_provider"`
	LLMAPIKey   *string `json:"llm_api_key"`
	LLMModel    *string `json:"llm_model"`
	SMTPUser    *string `json:"smtp_user"`
	SMTPPass    *string `json:"smtp_pass"`
	EmailTo     *string `json:"email_to"`
}

func handleProjectUpdate(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req projectUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.LLMProvider != nil && *req.LLMProvider != "" && !validProvider(*req.LLMProvider) {
			fail(c, http.StatusBadRequest, "unsupported llm provider")
			return
		}

		p, err := projects.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			failFromStore(c, err)
			return
		}

		apply(&p.Name, req.Name)
		apply(&p.LLMProvider, req.LLMProvider)
		apply(&p.LLMAPIKey, req.LLMAPIKey)
		apply(&p.LLMModel, req.LLMModel)
		apply(&p.SMTPUser, req.SMTPUser)
		apply(&p.SMTPPass, req.SMTPPass)
		apply(&p.EmailTo, req.EmailTo)

		if err := projects.Update(c.Request.Context(), p); err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "project": viewOf(p)})
	}
}

func apply(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func handleProjectDelete(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := projects.Delete(c.Request.Context(), c.Param("id")); err != nil {
			failFromStore(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	}
}

// logView is the admin representation of a log entry.
type logView struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Error       string    `json:"error"`
	LLMProvider string    `json:"llm_provider"`
	LLMModel    string    `json:"llm_model"`
	Resolution  string    `json:"resolution"`
	IsTrial     bool      `json:"is_trial"`
	CreatedAt   time.Time `json:"created_at"`
}

func handleProjectLogs(logs *store.Logs) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))

		entries, err := logs.ListByProject(c.Request.Context(), c.Param("id"), limit, offset)
		if err != nil {
			fail(c, http.StatusInternalServerError, err.Error())
			return
		}

		views := make([]logView, len(entries))
		for i, e := range entries {
			views[i] = logView{
				ID:          e.ID,
				ProjectID:   e.ProjectID,
				Error:       e.Error,
				LLMProvider: e.LLMProvider,
				LLMModel:    e.LLMModel,
				Resolution:  e.Resolution,
				IsTrial:     e.IsTrial,
				CreatedAt:   e.CreatedAt,
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "logs": views})
	}
}

func handleRotateKey(projects *store.Projects) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := projects.RotateKey(c.Request.Context(), c.Param("id"))
		if err != nil {
			failFromStore(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "api_key": key})
	}
}

func validProvider(p string) bool {
	switch p {
	case models.ProviderOpenAI, models.ProviderAnthropic, models.ProviderGemini:
		return true
	}
	return false
}

func failFromStore(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, "project not found")
		return
	}
	fail(c, http.StatusInternalServerError, err.Error())
}
