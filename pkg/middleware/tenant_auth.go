package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wms-platform/stock-ledger-service/pkg/tenant"
)

// Tenant scoping HTTP header names
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderSiteID     = "X-Site-ID"
	HeaderWorkcellID = "X-Workcell-ID"
	HeaderActorID    = "X-Actor-ID"
	HeaderDeviceID   = "X-Device-ID"
)

// Gin context keys for tenant scoping
const (
	ContextKeyTenantID = "tenantId"
	ContextKeySiteID   = "siteId"
	ContextKeyActorID  = "actorId"
)

// TenantAuthConfig holds configuration for tenant authorization middleware
type TenantAuthConfig struct {
	// Required when true, requests without tenant context will be rejected
	Required bool

	// Validator is an optional interface to validate tenant access
	Validator TenantValidator

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string

	// DefaultSiteID is used when no site header is provided and Required is false
	DefaultSiteID string
}

// TenantValidator interface for validating tenant access
type TenantValidator interface {
	// ValidateTenantAccess checks if the user (from auth context) has access to the tenant
	ValidateTenantAccess(userID, tenantID, siteID string) error

	// GetUserTenants returns the list of tenants a user has access to
	GetUserTenants(userID string) ([]string, error)
}

// DefaultTenantAuthConfig returns a default configuration for backward compatibility
func DefaultTenantAuthConfig() *TenantAuthConfig {
	return &TenantAuthConfig{
		Required:        false,
		DefaultTenantID: tenant.DefaultTenantID,
		DefaultSiteID:   tenant.DefaultSiteID,
	}
}

// TenantAuth middleware extracts tenant context from headers and adds it to the request context.
// It can optionally validate that the requesting user has access to the tenant.
func TenantAuth(config *TenantAuthConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantAuthConfig()
	}

	return func(c *gin.Context) {
		// Extract tenant context from headers
		tenantID := c.GetHeader(HeaderTenantID)
		siteID := c.GetHeader(HeaderSiteID)
		workcellID := c.GetHeader(HeaderWorkcellID)
		actorID := c.GetHeader(HeaderActorID)
		deviceID := c.GetHeader(HeaderDeviceID)

		// Apply defaults if not provided and config allows
		if tenantID == "" && !config.Required {
			tenantID = config.DefaultTenantID
		}
		if siteID == "" && !config.Required {
			siteID = config.DefaultSiteID
		}

		// Check if tenant context is required but missing
		if config.Required && tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "Tenant context is required",
			})
			return
		}

		// Validate tenant access if validator is configured
		if config.Validator != nil && tenantID != "" {
			// Get user ID from auth context (set by authentication middleware)
			userID := c.GetString("userId")
			if userID == "" {
				// Try alternative key names
				if val, exists := c.Get("user_id"); exists {
					if uid, ok := val.(string); ok {
						userID = uid
					}
				}
			}

			if userID != "" {
				if err := config.Validator.ValidateTenantAccess(userID, tenantID, siteID); err != nil {
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
						"code":    "UNAUTHORIZED_TENANT_ACCESS",
						"message": "Access to this tenant/site is not authorized",
					})
					return
				}
			}
		}

		// Create tenant context
		tc := &tenant.Context{
			TenantID:   tenantID,
			SiteID:     siteID,
			WorkcellID: workcellID,
			ActorID:    actorID,
			DeviceID:   deviceID,
		}

		// Add tenant context to Go context
		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)

		// Also store in Gin context for easy access in handlers
		c.Set("tenantContext", tc)
		c.Set(ContextKeyTenantID, tenantID)
		c.Set(ContextKeySiteID, siteID)
		c.Set(ContextKeyActorID, actorID)

		c.Next()
	}
}

// RequireTenantAuth returns tenant middleware that rejects requests without a tenant header
func RequireTenantAuth() gin.HandlerFunc {
	return TenantAuth(&TenantAuthConfig{Required: true})
}

// GetTenantContext retrieves the tenant context from Gin context
func GetTenantContext(c *gin.Context) *tenant.Context {
	if val, exists := c.Get("tenantContext"); exists {
		if tc, ok := val.(*tenant.Context); ok {
			return tc
		}
	}

	// Fallback: try to build from individual context keys
	return &tenant.Context{
		TenantID: c.GetString(ContextKeyTenantID),
		SiteID:   c.GetString(ContextKeySiteID),
		ActorID:  c.GetString(ContextKeyActorID),
	}
}

// GetTenantID extracts the tenant ID from Gin context
func GetTenantID(c *gin.Context) string {
	return GetTenantContext(c).TenantID
}

// GetSiteID extracts the site ID from Gin context
func GetSiteID(c *gin.Context) string {
	return GetTenantContext(c).SiteID
}

// GetActorID extracts the actor ID from Gin context
func GetActorID(c *gin.Context) string {
	return GetTenantContext(c).ActorID
}

// RequireTenant is a middleware that ensures tenant context is present.
// Use this for endpoints that must have tenant context.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil || tc.IsEmpty() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_CONTEXT",
				"message": "Tenant context is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}

// RequireSite is a middleware that ensures site context is present.
// Use this for endpoints that are site-specific.
func RequireSite() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil || !tc.HasSite() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_SITE_CONTEXT",
				"message": "Site context is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}

// RequireActor is a middleware that ensures an actor is identified.
// Use this for endpoints that mutate the ledger.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil || !tc.HasActor() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_ACTOR_CONTEXT",
				"message": "Actor context is required for this endpoint",
			})
			return
		}
		c.Next()
	}
}

// TenantFromPath extracts tenant context from URL path parameters.
// Useful for APIs like /tenants/:tenantId/items
func TenantFromPath(tenantParam, siteParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc := GetTenantContext(c)
		if tc == nil {
			tc = &tenant.Context{}
		}

		// Override with path parameters if provided
		if tenantParam != "" {
			if tenantID := c.Param(tenantParam); tenantID != "" {
				tc.TenantID = tenantID
			}
		}
		if siteParam != "" {
			if siteID := c.Param(siteParam); siteID != "" {
				tc.SiteID = siteID
			}
		}

		// Update context
		ctx := tenant.ToContext(c.Request.Context(), tc)
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenantContext", tc)

		c.Next()
	}
}
