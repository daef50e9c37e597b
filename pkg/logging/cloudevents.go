package logging

import "context"

// Context keys for CloudEvents WMS extensions
const (
	WMSCorrelationIDKey contextKey = "wmsCorrelationId"
	WMSReferenceIDKey   contextKey = "wmsReferenceId"
	WMSWorkcellIDKey    contextKey = "wmsWorkcellId"
)

// CloudEventContext holds CloudEvents WMS extension values for log enrichment
type CloudEventContext struct {
	CorrelationID string
	ReferenceID   string
	WorkcellID    string
	TenantID      string
	SiteID        string
}

// WithCloudEventContext creates a logger enriched with CloudEvents extension attributes
func (l *Logger) WithCloudEventContext(cec CloudEventContext) *Logger {
	attrs := make([]any, 0, 10)
	if cec.CorrelationID != "" {
		attrs = append(attrs, "wmsCorrelationId", cec.CorrelationID)
	}
	if cec.ReferenceID != "" {
		attrs = append(attrs, "wmsReferenceId", cec.ReferenceID)
	}
	if cec.WorkcellID != "" {
		attrs = append(attrs, "wmsWorkcellId", cec.WorkcellID)
	}
	if cec.TenantID != "" {
		attrs = append(attrs, "tenantId", cec.TenantID)
	}
	if cec.SiteID != "" {
		attrs = append(attrs, "siteId", cec.SiteID)
	}

	if len(attrs) == 0 {
		return l
	}

	return &Logger{
		Logger:      l.Logger.With(attrs...),
		serviceName: l.serviceName,
		environment: l.environment,
		version:     l.version,
	}
}

// ContextWithWMSCorrelationID adds the WMS correlation ID to context
func ContextWithWMSCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, WMSCorrelationIDKey, correlationID)
}

// ContextWithWMSReferenceID adds the WMS reference ID to context
func ContextWithWMSReferenceID(ctx context.Context, referenceID string) context.Context {
	return context.WithValue(ctx, WMSReferenceIDKey, referenceID)
}

// ContextWithWMSWorkcellID adds the WMS workcell ID to context
func ContextWithWMSWorkcellID(ctx context.Context, workcellID string) context.Context {
	return context.WithValue(ctx, WMSWorkcellIDKey, workcellID)
}

// ContextWithCloudEventExtensions adds all CloudEvents WMS extensions to context.
// Empty values are skipped.
func ContextWithCloudEventExtensions(ctx context.Context, correlationID, referenceID, workcellID, tenantID, siteID string) context.Context {
	if correlationID != "" {
		ctx = ContextWithWMSCorrelationID(ctx, correlationID)
	}
	if referenceID != "" {
		ctx = ContextWithWMSReferenceID(ctx, referenceID)
	}
	if workcellID != "" {
		ctx = ContextWithWMSWorkcellID(ctx, workcellID)
	}
	if tenantID != "" {
		ctx = ContextWithTenantID(ctx, tenantID)
	}
	if siteID != "" {
		ctx = ContextWithSiteID(ctx, siteID)
	}
	return ctx
}

// extractCloudEventAttrs extracts CloudEvents extension attributes from context
func extractCloudEventAttrs(ctx context.Context) []any {
	var attrs []any

	if v := ctx.Value(WMSCorrelationIDKey); v != nil {
		attrs = append(attrs, "wmsCorrelationId", v)
	}
	if v := ctx.Value(WMSReferenceIDKey); v != nil {
		attrs = append(attrs, "wmsReferenceId", v)
	}
	if v := ctx.Value(WMSWorkcellIDKey); v != nil {
		attrs = append(attrs, "wmsWorkcellId", v)
	}

	return attrs
}
