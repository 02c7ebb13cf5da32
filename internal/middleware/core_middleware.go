package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/adrizkya/parkirin/internal/audit"
	"github.com/adrizkya/parkirin/internal/dupe"
	"github.com/adrizkya/parkirin/internal/engine"
	"github.com/adrizkya/parkirin/internal/ocr"
	"github.com/adrizkya/parkirin/internal/stats"
	"github.com/adrizkya/parkirin/internal/store"
)

// Core bundles the collaborators handlers need. OCR may be nil when no
// recognition endpoint is configured.
type Core struct {
	Engine   *engine.Engine
	Resolver *dupe.Resolver
	Stats    *stats.Aggregator
	Audit    *audit.Writer
	Tickets  store.TicketStore
	OCR      *ocr.Client
}

func CoreMiddleware(core *Core) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("core", core)
		c.Next()
	}
}

func GetCore(c *gin.Context) *Core {
	core, exists := c.Get("core")
	if !exists {
		return nil
	}
	return core.(*Core)
}
