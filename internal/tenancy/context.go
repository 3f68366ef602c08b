package tenancy

import "context"

type ctxKey string

const siteKey ctxKey = "opd.site_id"

// WithSiteID stores the site id in context.
func WithSiteID(ctx context.Context, siteID string) context.Context {
	return context.WithValue(ctx, siteKey, siteID)
}

// SiteIDFromContext extracts the site id if present.
func SiteIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(siteKey)
	if val == nil {
		return "", false
	}
	siteID, ok := val.(string)
	return siteID, ok && siteID != ""
}
