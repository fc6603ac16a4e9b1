// Package http exposes mongolink connections to HTTP services.
//
// Middleware resolves an alias for every request and stores the live handle
// in the request context, the way a web framework extension would bind a
// database to the application:
//
//	router.Use(mongolinkhttp.Middleware(manager, "default-mongodb-connection"))
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    h, ok := mongolinkhttp.HandleFromContext(r.Context())
//	    ...
//	}
//
// Handler serves operational endpoints:
//
//	GET /healthz              pings every connected alias
//	GET /connections          lists defined aliases with redacted settings
//	GET /connections/{alias}  shows one alias
//	GET /ping                 pings HandlerConfig.Alias through Middleware
//
// Errors are written as JSON with a stable error code:
//
//	404 not_defined         alias has no settings
//	500 invalid_settings    configuration or policy error
//	500 missing_dependency  a required local tool is missing
//	503 connection_error    the database could not be reached
package http
