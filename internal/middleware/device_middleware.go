package middleware

import (
	"github.com/gin-gonic/gin"
)

// DeviceMiddleware extracts the terminal identifier every mutating call
// must supply for audit attribution. The core makes no assumption about
// how the client generated or persisted the id.
func DeviceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID := c.GetHeader("X-Device-Id")
		if deviceID == "" {
			deviceID = "unknown"
		}
		c.Set("device_id", deviceID)
		c.Next()
	}
}

func GetDeviceID(c *gin.Context) string {
	deviceID, exists := c.Get("device_id")
	if !exists {
		return "unknown"
	}
	return deviceID.(string)
}
