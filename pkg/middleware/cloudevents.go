package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/wms-platform/stock-ledger-service/pkg/logging"
)

// CloudEvents WMS extension context keys
const (
	ContextKeyWMSCorrelationID = "wmsCorrelationId"
	ContextKeyWMSReferenceID   = "wmsReferenceId"
	ContextKeyWMSWorkcellID    = "wmsWorkcellId"
)

// CloudEvents WMS extension HTTP header names
const (
	HeaderWMSCorrelationID = "X-WMS-Correlation-ID"
	HeaderWMSReferenceID   = "X-WMS-Reference-ID"
	HeaderWMSWorkcellID    = "X-WMS-Workcell-ID"
)

// CloudEvents middleware extracts WMS CloudEvents extensions from HTTP headers
// and adds them to the request context for downstream logging and propagation.
// These extensions follow the CloudEvents specification and are used for
// distributed tracing and correlation across WMS services.
func CloudEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract WMS CloudEvents extensions from headers
		wmsCorrelationID := c.GetHeader(HeaderWMSCorrelationID)
		wmsReferenceID := c.GetHeader(HeaderWMSReferenceID)
		wmsWorkcellID := c.GetHeader(HeaderWMSWorkcellID)

		// Set in Gin context
		if wmsCorrelationID != "" {
			c.Set(ContextKeyWMSCorrelationID, wmsCorrelationID)
		}
		if wmsReferenceID != "" {
			c.Set(ContextKeyWMSReferenceID, wmsReferenceID)
		}
		if wmsWorkcellID != "" {
			c.Set(ContextKeyWMSWorkcellID, wmsWorkcellID)
		}

		// Set in Go context for logging package
		ctx := c.Request.Context()
		if wmsCorrelationID != "" {
			ctx = logging.ContextWithWMSCorrelationID(ctx, wmsCorrelationID)
		}
		if wmsReferenceID != "" {
			ctx = logging.ContextWithWMSReferenceID(ctx, wmsReferenceID)
		}
		if wmsWorkcellID != "" {
			ctx = logging.ContextWithWMSWorkcellID(ctx, wmsWorkcellID)
		}
		c.Request = c.Request.WithContext(ctx)

		// Propagate headers in response (for tracing)
		if wmsCorrelationID != "" {
			c.Header(HeaderWMSCorrelationID, wmsCorrelationID)
		}
		if wmsReferenceID != "" {
			c.Header(HeaderWMSReferenceID, wmsReferenceID)
		}
		if wmsWorkcellID != "" {
			c.Header(HeaderWMSWorkcellID, wmsWorkcellID)
		}

		c.Next()
	}
}

// GetWMSCorrelationID extracts WMS correlation ID from Gin context
func GetWMSCorrelationID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyWMSCorrelationID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetWMSReferenceID extracts WMS reference ID from Gin context
func GetWMSReferenceID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyWMSReferenceID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// GetWMSWorkcellID extracts WMS workcell ID from Gin context
func GetWMSWorkcellID(c *gin.Context) string {
	if val, exists := c.Get(ContextKeyWMSWorkcellID); exists {
		if id, ok := val.(string); ok {
			return id
		}
	}
	return ""
}

// CloudEventExtensions holds all WMS CloudEvent extension values
type CloudEventExtensions struct {
	CorrelationID string
	ReferenceID   string
	WorkcellID    string
	TenantID      string
	SiteID        string
}

// GetCloudEventExtensions extracts all CloudEvent extensions from Gin context
func GetCloudEventExtensions(c *gin.Context) CloudEventExtensions {
	tc := GetTenantContext(c)
	return CloudEventExtensions{
		CorrelationID: GetWMSCorrelationID(c),
		ReferenceID:   GetWMSReferenceID(c),
		WorkcellID:    GetWMSWorkcellID(c),
		TenantID:      tc.TenantID,
		SiteID:        tc.SiteID,
	}
}

// ToLoggingContext converts CloudEventExtensions to logging.CloudEventContext
func (ce CloudEventExtensions) ToLoggingContext() logging.CloudEventContext {
	return logging.CloudEventContext{
		CorrelationID: ce.CorrelationID,
		ReferenceID:   ce.ReferenceID,
		WorkcellID:    ce.WorkcellID,
		TenantID:      ce.TenantID,
		SiteID:        ce.SiteID,
	}
}

// PropagationCloudEventHeaders returns CloudEvents WMS headers for propagation to downstream services
func PropagationCloudEventHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)

	if id := GetWMSCorrelationID(c); id != "" {
		headers[HeaderWMSCorrelationID] = id
	}
	if id := GetWMSReferenceID(c); id != "" {
		headers[HeaderWMSReferenceID] = id
	}
	if id := GetWMSWorkcellID(c); id != "" {
		headers[HeaderWMSWorkcellID] = id
	}

	return headers
}

// CloudEventsLogger middleware adds CloudEvents extensions to logs
// This is a specialized Logger middleware that includes WMS CloudEvents extensions
func CloudEventsLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get CloudEvent extensions
		ext := GetCloudEventExtensions(c)

		// Create enriched logger
		enrichedLogger := logger.WithCloudEventContext(ext.ToLoggingContext())

		// Store enriched logger in context
		c.Set("logger", enrichedLogger)

		c.Next()
	}
}

// GetEnrichedLogger retrieves the CloudEvents-enriched logger from Gin context
func GetEnrichedLogger(c *gin.Context, fallbackLogger *logging.Logger) *logging.Logger {
	if logger, exists := c.Get("logger"); exists {
		if l, ok := logger.(*logging.Logger); ok {
			return l
		}
	}
	return fallbackLogger
}
