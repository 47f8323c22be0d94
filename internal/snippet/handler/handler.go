package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/pastebin/pastebin/internal/snippet/service"
	"github.com/pastebin/pastebin/pkg/logger"
)

var log = logger.Named("snippet-api")

// Options tunes the recent listing endpoint.
type Options struct {
	RecentCount int
	RecentMax   int
}

// createRequest mirrors the public create form. Bounds are enforced here,
// before the request reaches the service.
type createRequest struct {
	Title        *string `json:"title" binding:"omitempty,max=50"`
	Language     *string `json:"language" binding:"omitempty,max=10"`
	IsPrivate    bool    `json:"isPrivate"`
	Content      *string `json:"content" binding:"required,max=5000"`
	ExpiresInMin *int    `json:"expiresInMin" binding:"omitempty,min=0,max=1440"`
}

func RegisterSnippetRoutes(r gin.IRoutes, svc service.Service, opts Options) {
	if opts.RecentMax <= 0 {
		opts.RecentMax = 100
	}
	if opts.RecentCount <= 0 || opts.RecentCount > opts.RecentMax {
		opts.RecentCount = min(10, opts.RecentMax)
	}

	r.GET("/api/snippets", func(c *gin.Context) {
		count := opts.RecentCount
		if raw, ok := c.GetQuery("count"); ok {
			n, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "count must be an integer"})
				return
			}
			count = min(n, opts.RecentMax)
		}
		list, err := svc.GetRecent(c.Request.Context(), count)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.POST("/api/snippets", func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := svc.Create(c.Request.Context(), &snippet.CreateInput{
			Title:      req.Title,
			Language:   req.Language,
			IsPrivate:  req.IsPrivate,
			Content:    req.Content,
			TTLMinutes: req.ExpiresInMin,
		})
		if err != nil {
			abortWithError(c, err)
			return
		}
		log.Debugf("created snippet %s private=%v", v.ID, v.IsPrivate)
		c.Header("Location", "/api/snippets/"+v.ID)
		c.JSON(http.StatusCreated, v)
	})

	r.GET("/api/snippets/:id", func(c *gin.Context) {
		v, err := svc.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortWithError(c, err)
			return
		}
		if v == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, v)
	})
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, snippet.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, snippet.ErrStorageUnavailable):
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
	default:
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
