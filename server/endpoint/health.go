package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/recoverykit/recovery"
)

// Health reports the system verdict and per-service health. It answers 503
// while the system is critical so load balancers can act on it.
func Health(serviceName string, coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := coord.ServiceHealthStatus(c.Request.Context())

		httpStatus := http.StatusOK
		if sys, _ := status["system_health"].(recovery.SystemHealth); sys == recovery.SystemCritical {
			httpStatus = http.StatusServiceUnavailable
		}

		c.JSON(httpStatus, gin.H{
			"service":       serviceName,
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"system_health": status["system_health"],
			"services":      status["services"],
			"state_valid":   status["state_valid"],
		})
	}
}

// DetailedHealth returns the full health report.
func DetailedHealth(coord Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.DetailedHealthReport(c.Request.Context()))
	}
}

// Liveness confirms the process can serve HTTP.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
