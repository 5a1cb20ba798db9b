package server

// Route path constants
const (
	RouteIndex     = "/"
	RouteRegister  = "/register"
	RouteLogin     = "/login"
	RouteDashboard = "/dashboard"
	RouteLogout    = "/logout"
	RouteMetrics   = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
