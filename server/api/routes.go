package api

// Route patterns for the catalog introspection surface.
const (
	routeHealth      = "/healthz"
	routeMetrics     = "/metrics"
	routeCollections = "/v1/collections"
	routeCollection  = "/v1/collections/{name}"
	routeProtocols   = "/v1/protocols"
	routeProtocol    = "/v1/protocols/{name}"
	routeInterface   = "/v1/protocols/{name}/interfaces/{iface}"
)

// Route names for mux URL building.
const (
	RouteNameHealth      = "health"
	RouteNameMetrics     = "metrics"
	RouteNameCollections = "collections_list"
	RouteNameCollection  = "collections_get"
	RouteNameProtocols   = "protocols_list"
	RouteNameProtocol    = "protocols_get"
	RouteNameInterface   = "protocols_interface_get"
)
