package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nutrivision/pkg/dispatch"
	"nutrivision/pkg/intake"
)

// multipartSlack covers the form fields and part headers around the image.
const multipartSlack = 64 * 1024

const (
	errNoData        = "No analysis data available"
	errRouteNotFound = "Route not found"
	errInternal      = "Something went wrong!"
)

func newEngine(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.CustomRecovery(recoveryHandler))
	setupRoutes(r, a)
	return r
}

func setupRoutes(r *gin.Engine, a *app) {
	api := r.Group("/api")
	api.POST("/analyze-food", deviceAuthMiddleware([]byte(a.cfg.DeviceTokenSecret)), a.analyzeFoodHandler)
	api.GET("/latest-analysis", a.latestAnalysisHandler)
	api.GET("/health", healthHandler)
	r.Static(publicUploads, a.cfg.UploadDir)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": errRouteNotFound})
	})
}

// analyzeFoodHandler accepts an image and a weight, answers immediately with
// the processing record and leaves the analysis to the dispatcher.
func (a *app) analyzeFoodHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, intake.MaxFileSize+multipartSlack)
	file, err := c.FormFile(intake.FieldName)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(c, intake.Invalid(intake.FileTooLarge))
			return
		}
		badRequest(c, intake.Invalid(intake.MissingFile))
		return
	}

	rec, fullPath, err := a.intake.Accept(file, c.PostForm("weight"))
	if err != nil {
		var verr *intake.ValidationError
		if errors.As(err, &verr) {
			badRequest(c, verr)
			return
		}
		log.Printf("upload %s failed: %v", file.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errInternal})
		return
	}
	log.Printf("accepted %s as %s (%gg, record %s, device %q)", rec.Image.OriginalName, rec.Image.Filename, rec.Weight, rec.ID, c.GetString("device"))

	if err := a.dispatcher.Submit(dispatch.Job{Record: rec, ImagePath: fullPath}); err != nil {
		log.Printf("WARN record %s not queued: %v", rec.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func (a *app) latestAnalysisHandler(c *gin.Context) {
	rec, ok := a.slot.Read()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": errNoData})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func recoveryHandler(c *gin.Context, recovered any) {
	log.Printf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": errInternal})
}

func badRequest(c *gin.Context, verr *intake.ValidationError) {
	log.Printf("rejected upload: %s", verr.Kind)
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": verr.Message})
}
