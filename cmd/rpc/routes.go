package rpc

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Quorum RPC Paths
const (
	VersionRoutePath       = "/v1/"
	HeightRoutePath        = "/v1/height"
	ParamsRoutePath        = "/v1/params"
	WindowRoutePath        = "/v1/window/:type/:height"
	MinedRoutePath         = "/v1/mined/:type/:hash"
	MinableRoutePath       = "/v1/minable/:type/:height"
	SubmitBlockRoutePath   = "/v1/submitblock"
	CommitmentRoutePath    = "/v1/commitment"
	BlockTemplateRoutePath = "/v1/blocktemplate"
	// admin
	ResourceUsageRoutePath = "/v1/admin/resource-usage"
)

const (
	VersionRouteName       = "version"
	HeightRouteName        = "height"
	ParamsRouteName        = "params"
	WindowRouteName        = "window"
	MinedRouteName         = "mined"
	MinableRouteName       = "minable"
	SubmitBlockRouteName   = "submit-block"
	CommitmentRouteName    = "commitment"
	BlockTemplateRouteName = "block-template"
	ResourceUsageRouteName = "resource-usage"
)

// routes contains the method and path for a named route
type routes map[string]struct {
	Method string
	Path   string
}

// routePaths is a mapping from route names to their corresponding HTTP methods and paths.
var routePaths = routes{
	VersionRouteName:       {Method: http.MethodGet, Path: VersionRoutePath},
	HeightRouteName:        {Method: http.MethodGet, Path: HeightRoutePath},
	ParamsRouteName:        {Method: http.MethodGet, Path: ParamsRoutePath},
	WindowRouteName:        {Method: http.MethodGet, Path: WindowRoutePath},
	MinedRouteName:         {Method: http.MethodGet, Path: MinedRoutePath},
	MinableRouteName:       {Method: http.MethodGet, Path: MinableRoutePath},
	SubmitBlockRouteName:   {Method: http.MethodPost, Path: SubmitBlockRoutePath},
	CommitmentRouteName:    {Method: http.MethodPost, Path: CommitmentRoutePath},
	BlockTemplateRouteName: {Method: http.MethodPost, Path: BlockTemplateRoutePath},
	ResourceUsageRouteName: {Method: http.MethodGet, Path: ResourceUsageRoutePath},
}

// httpRouteHandlers is a custom type that maps strings to httprouter handle functions
type httpRouteHandlers map[string]httprouter.Handle

// createRouter initializes and returns a new HTTP router with predefined route handlers.
func createRouter(s *Server) *httprouter.Router {
	var r = httpRouteHandlers{
		VersionRouteName:       s.Version,
		HeightRouteName:        s.Height,
		ParamsRouteName:        s.Params,
		WindowRouteName:        s.Window,
		MinedRouteName:         s.Mined,
		MinableRouteName:       s.Minable,
		SubmitBlockRouteName:   s.SubmitBlock,
		CommitmentRouteName:    s.Commitment,
		BlockTemplateRouteName: s.BlockTemplate,
		ResourceUsageRouteName: s.ResourceUsage,
	}

	router := httprouter.New()

	for name, handler := range r {
		// Retrieve the path configuration for the current route name.
		path := routePaths[name]

		// Add the handler for the specific path and HTTP method to the router.
		router.Handle(path.Method, path.Path, logHandler{path.Path, handler, s.logger}.Handle)
	}

	return router
}
