package endpoint

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/recovery"
	"github.com/kbukum/recoverykit/validation"
)

const serviceNamePattern = `^[A-Za-z][A-Za-z_-]*$`

// RecoveryStatus returns the registry summary.
func RecoveryStatus(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.ErrorRecoveryStatus(c.Request.Context()))
	}
}

// ResetAll runs the coordinated reset and returns every step.
func ResetAll(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		steps := coord.ResetAllServiceStates(c.Request.Context())
		ok := true
		for _, s := range steps {
			ok = ok && s.OK
		}
		c.JSON(http.StatusOK, gin.H{
			"ok":            ok,
			"steps":         steps,
			"system_health": coord.ErrorRecoveryStatus(c.Request.Context())["system_health"],
		})
	}
}

// RecoverService re-runs recovery for the :name service. A known alias is
// mapped to its canonical name unless an error is stored under the alias
// itself.
func RecoverService(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if appErr := validation.New().
			Required("name", name).
			MaxLength("name", name, 64).
			Pattern("name", name, serviceNamePattern).
			Validate(); appErr != nil {
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		ctx := c.Request.Context()
		if _, stored := errorStates(ctx, coord)[name]; !stored {
			if svc := recovery.ParseService(name); svc != recovery.ServiceUnknown {
				name = svc.String()
			}
		}

		attempted := coord.RecoverService(ctx, name)
		state, stillFailing := errorStates(ctx, coord)[name]

		body := gin.H{
			"service":   name,
			"attempted": attempted,
			"recovered": attempted && !stillFailing,
		}
		if stillFailing {
			body["error"] = state
		}
		c.JSON(http.StatusOK, body)
	}
}

func errorStates(ctx context.Context, coord Coordinator) map[string]recovery.ErrorState {
	states, _ := coord.ErrorRecoveryStatus(ctx)["errors"].(map[string]recovery.ErrorState)
	return states
}

// ClearErrors drops every stored error.
func ClearErrors(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		coord.ClearAllServiceErrors()
		c.Status(http.StatusNoContent)
	}
}

// NotFound answers unknown routes with the standard error body.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		appErr := errors.NotFound("route", c.Request.URL.Path)
		c.JSON(appErr.HTTPStatus, appErr.ToResponse())
	}
}
