package handler

// Route type
type Route string

const (
	// RouteUpdate rebuild and publish the site
	RouteUpdate Route = "update"
	// RouteStatus summary of the published generation
	RouteStatus Route = "status"
	// RouteManifest manifest of the published generation
	RouteManifest Route = "manifest"
)
