package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Kind is set on rejections the caller can act on, e.g. "full" or "time_conflict".
	Kind string `json:"kind,omitempty"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Success: true, Data: data})
}

// fail writes an error envelope and stops the handler chain.
func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg})
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) { success(c, http.StatusOK, data) }

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) { success(c, http.StatusCreated, data) }

// Accepted sends 202 for work handed to the background worker.
func Accepted(c *gin.Context, data interface{}) { success(c, http.StatusAccepted, data) }

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Rejected sends status with a machine-readable kind and optional details in data.
func Rejected(c *gin.Context, status int, kind, msg string, data interface{}) {
	c.AbortWithStatusJSON(status, Body{Success: false, Error: msg, Kind: kind, Data: data})
}

// Error helpers write {success:false, error} with the named status.
func BadRequest(c *gin.Context, err string)         { fail(c, http.StatusBadRequest, err) }
func Unauthorized(c *gin.Context, err string)       { fail(c, http.StatusUnauthorized, err) }
func Forbidden(c *gin.Context, err string)          { fail(c, http.StatusForbidden, err) }
func NotFound(c *gin.Context, err string)           { fail(c, http.StatusNotFound, err) }
func Conflict(c *gin.Context, err string)           { fail(c, http.StatusConflict, err) }
func ServiceUnavailable(c *gin.Context, err string) { fail(c, http.StatusServiceUnavailable, err) }

// Internal sends 500. err must not carry internal details.
func Internal(c *gin.Context, err string) { fail(c, http.StatusInternalServerError, err) }
