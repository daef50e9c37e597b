package cloudevents

import (
	"github.com/wms-platform/stock-ledger-service/pkg/tenant"
)

// CloudEvents extension attribute names for WMS tenant context
const (
	// Tenant context extensions (used in CloudEvents and message headers)
	ExtTenantID   = "wmstenantid"
	ExtSiteID     = "wmssiteid"
	ExtWorkcellID = "wmsworkcellid"
	ExtActorID    = "wmsactorid"

	// Business context extensions
	ExtCorrelationID = "wmscorrelationid"
	ExtReferenceID   = "wmsreferenceid"
)

// HTTP header names for WMS tenant context
const (
	HeaderTenantID   = "X-WMS-Tenant-ID"
	HeaderSiteID     = "X-WMS-Site-ID"
	HeaderWorkcellID = "X-WMS-Workcell-ID"
	HeaderActorID    = "X-WMS-Actor-ID"
)

// SetTenantContext sets tenant context extensions on a WMSCloudEvent
func (e *WMSCloudEvent) SetTenantContext(tc *tenant.Context) {
	if tc == nil {
		return
	}
	e.TenantID = tc.TenantID
	e.SiteID = tc.SiteID
	e.WorkcellID = tc.WorkcellID
	e.ActorID = tc.ActorID
}

// GetTenantContext extracts tenant context from a WMSCloudEvent
func (e *WMSCloudEvent) GetTenantContext() *tenant.Context {
	return &tenant.Context{
		TenantID:   e.TenantID,
		SiteID:     e.SiteID,
		WorkcellID: e.WorkcellID,
		ActorID:    e.ActorID,
	}
}

// WithTenantContext is a builder method that sets tenant context and returns the event
func (e *WMSCloudEvent) WithTenantContext(tc *tenant.Context) *WMSCloudEvent {
	e.SetTenantContext(tc)
	return e
}

// WithTenant sets individual tenant fields and returns the event
func (e *WMSCloudEvent) WithTenant(tenantID, siteID string) *WMSCloudEvent {
	e.TenantID = tenantID
	e.SiteID = siteID
	return e
}

// WithActor sets the acting user or system and returns the event
func (e *WMSCloudEvent) WithActor(actorID string) *WMSCloudEvent {
	e.ActorID = actorID
	return e
}

// HasTenantContext returns true if the required tenant fields are set
func (e *WMSCloudEvent) HasTenantContext() bool {
	return e.TenantID != ""
}

// ValidateTenantContext validates that required tenant context is present
func (e *WMSCloudEvent) ValidateTenantContext() error {
	tc := e.GetTenantContext()
	return tc.Validate()
}
