package tenant

import (
	"context"
	"errors"
)

// Context keys for tenant information
type contextKey string

const (
	tenantIDKey   contextKey = "tenantId"
	siteIDKey     contextKey = "siteId"
	workcellIDKey contextKey = "workcellId"
	actorIDKey    contextKey = "actorId"
	deviceIDKey   contextKey = "deviceId"
)

// Errors for tenant context operations
var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrUnauthorizedAccess   = errors.New("unauthorized access to tenant resource")
	ErrMissingTenantID      = errors.New("tenantId is required")
	ErrMissingSiteID        = errors.New("siteId is required")
	ErrMissingActorID       = errors.New("actorId is required for this operation")
)

// Context holds all tenant-related identifiers for multi-tenant operations.
// This struct is used to scope all database queries and operations to a specific tenant.
type Context struct {
	// TenantID is the warehouse operator identifier (the company whose stock this is)
	TenantID string `json:"tenantId"`

	// SiteID is the physical site/warehouse identifier
	SiteID string `json:"siteId"`

	// WorkcellID is a production workcell within a site
	WorkcellID string `json:"workcellId"`

	// ActorID is the user or system performing the operation
	ActorID string `json:"actorId"`

	// DeviceID is the scanner or terminal the event was entered on
	DeviceID string `json:"deviceId"`
}

// FromContext extracts tenant Context from context.Context.
// Returns an error if no tenant scoping information is present.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}

	if v := ctx.Value(tenantIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.TenantID = id
		}
	}
	if v := ctx.Value(siteIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.SiteID = id
		}
	}
	if v := ctx.Value(workcellIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.WorkcellID = id
		}
	}
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.ActorID = id
		}
	}
	if v := ctx.Value(deviceIDKey); v != nil {
		if id, ok := v.(string); ok {
			tc.DeviceID = id
		}
	}

	// At minimum, we need a TenantID for scoping
	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}

	return tc, nil
}

// FromContextOptional extracts tenant Context from context.Context.
// Unlike FromContext, this returns an empty context if none exists.
func FromContextOptional(ctx context.Context) *Context {
	tc, _ := FromContext(ctx)
	if tc == nil {
		return &Context{}
	}
	return tc
}

// ToContext adds tenant Context values to context.Context.
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}

	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.SiteID != "" {
		ctx = context.WithValue(ctx, siteIDKey, tc.SiteID)
	}
	if tc.WorkcellID != "" {
		ctx = context.WithValue(ctx, workcellIDKey, tc.WorkcellID)
	}
	if tc.ActorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, tc.ActorID)
	}
	if tc.DeviceID != "" {
		ctx = context.WithValue(ctx, deviceIDKey, tc.DeviceID)
	}

	return ctx
}

// WithTenantID returns a new context with the tenant ID set
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// WithSiteID returns a new context with the site ID set
func WithSiteID(ctx context.Context, siteID string) context.Context {
	return context.WithValue(ctx, siteIDKey, siteID)
}

// WithWorkcellID returns a new context with the workcell ID set
func WithWorkcellID(ctx context.Context, workcellID string) context.Context {
	return context.WithValue(ctx, workcellIDKey, workcellID)
}

// WithActorID returns a new context with the actor ID set
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// GetTenantID extracts tenant ID from context
func GetTenantID(ctx context.Context) string {
	if v := ctx.Value(tenantIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetSiteID extracts site ID from context
func GetSiteID(ctx context.Context) string {
	if v := ctx.Value(siteIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetWorkcellID extracts workcell ID from context
func GetWorkcellID(ctx context.Context) string {
	if v := ctx.Value(workcellIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetActorID extracts actor ID from context
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(actorIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// IsEmpty returns true if the context has no tenant identifiers set
func (tc *Context) IsEmpty() bool {
	return tc.TenantID == "" && tc.SiteID == "" && tc.WorkcellID == "" && tc.ActorID == ""
}

// HasTenant returns true if a tenant ID is set
func (tc *Context) HasTenant() bool {
	return tc.TenantID != ""
}

// HasSite returns true if a site ID is set
func (tc *Context) HasSite() bool {
	return tc.SiteID != ""
}

// HasWorkcell returns true if a workcell ID is set
func (tc *Context) HasWorkcell() bool {
	return tc.WorkcellID != ""
}

// HasActor returns true if an actor ID is set
func (tc *Context) HasActor() bool {
	return tc.ActorID != ""
}

// Validate checks that the required tenant context fields are present.
// Required fields are: TenantID.
func (tc *Context) Validate() error {
	if tc.TenantID == "" {
		return ErrMissingTenantID
	}
	return nil
}

// ValidateWithActor validates required fields including the actor ID.
// Use this for operations that mutate the ledger.
func (tc *Context) ValidateWithActor() error {
	if err := tc.Validate(); err != nil {
		return err
	}
	if tc.ActorID == "" {
		return ErrMissingActorID
	}
	return nil
}

// ValidateOwnership verifies that a resource belongs to this tenant context.
// Used to prevent cross-tenant data access.
func (tc *Context) ValidateOwnership(resourceTenantID, resourceSiteID string) error {
	// Validate tenant ID if present in context
	if tc.TenantID != "" && resourceTenantID != "" && tc.TenantID != resourceTenantID {
		return ErrUnauthorizedAccess
	}

	// Validate site ID if present in context
	if tc.SiteID != "" && resourceSiteID != "" && tc.SiteID != resourceSiteID {
		return ErrUnauthorizedAccess
	}

	return nil
}

// Default identifiers for data created before tenant fields were mandatory.
const (
	DefaultTenantID = "DEFAULT_TENANT"
	DefaultSiteID   = "DEFAULT_SITE"
)

// Default returns a default tenant context for backward compatibility
func Default() *Context {
	return &Context{
		TenantID: DefaultTenantID,
		SiteID:   DefaultSiteID,
	}
}
