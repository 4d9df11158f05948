package errors

import "sort"

// Registered error codes.
const (
	CodeRouteNotFound   = "R001"
	CodeRouteDecode     = "R002"
	CodeRouteGuard      = "R003"
	CodeRedirectLoop    = "R004"
	CodeAmbiguousRoute  = "R010"
	CodeInvalidPattern  = "R011"
	CodeLayerBuild      = "R020"
	CodeTeardown        = "R021"
	CodeUncaughtContent = "R022"
	CodeInvalidConfig   = "R030"
	CodeInvalidScenario = "R031"
	CodeInternal        = "R099"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Resolution Errors (R001-R009)
	// ============================================

	CodeRouteNotFound: {
		Category: CategoryRouting,
		Message:  "Route not found",
		Detail:   "No compiled route matches the requested path.",
		DocURL:   "https://liveroute.dev/docs/errors/R001",
	},
	CodeRouteDecode: {
		Category: CategoryValidation,
		Message:  "Route parameters could not be decoded",
		Detail:   "A route matched the path, but its parameters did not satisfy the declared schema.",
		DocURL:   "https://liveroute.dev/docs/errors/R002",
	},
	CodeRouteGuard: {
		Category: CategoryRouting,
		Message:  "No route guard accepted the path",
		Detail:   "Every candidate route matched and decoded, but each guard declined or failed.",
		DocURL:   "https://liveroute.dev/docs/errors/R003",
	},
	CodeRedirectLoop: {
		Category: CategoryRouting,
		Message:  "Too many consecutive redirects",
		Detail:   "Guards kept redirecting without any transition committing.",
		DocURL:   "https://liveroute.dev/docs/errors/R004",
	},

	// ============================================
	// Route Tree Errors (R010-R019)
	// ============================================

	CodeAmbiguousRoute: {
		Category: CategoryBuild,
		Message:  "Ambiguous route",
		Detail:   "The same route is reachable twice under an identical final pattern.",
		DocURL:   "https://liveroute.dev/docs/errors/R010",
	},
	CodeInvalidPattern: {
		Category: CategoryBuild,
		Message:  "Invalid route pattern",
		Detail:   "A route template could not be parsed or joined with its prefix.",
		DocURL:   "https://liveroute.dev/docs/errors/R011",
	},

	// ============================================
	// Lifecycle Errors (R020-R029)
	// ============================================

	CodeLayerBuild: {
		Category: CategoryLifecycle,
		Message:  "Layer build failed",
		Detail:   "A dependency layer could not be constructed for the requested route.",
		DocURL:   "https://liveroute.dev/docs/errors/R020",
	},
	CodeTeardown: {
		Category: CategoryLifecycle,
		Message:  "Scope teardown failed",
		Detail:   "One or more finalizers returned an error while a scope was closing.",
		DocURL:   "https://liveroute.dev/docs/errors/R021",
	},
	CodeUncaughtContent: {
		Category: CategoryLifecycle,
		Message:  "Uncaught content failure",
		Detail:   "Route content failed and no catch boundary was active to recover.",
		DocURL:   "https://liveroute.dev/docs/errors/R022",
	},

	// ============================================
	// Tooling Errors (R030-R039)
	// ============================================

	CodeInvalidConfig: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "liveroute.json could not be read or contains invalid values.",
		DocURL:   "https://liveroute.dev/docs/errors/R030",
	},
	CodeInvalidScenario: {
		Category: CategoryConfig,
		Message:  "Invalid scenario",
		Detail:   "The scenario file could not be parsed into a route tree and navigation script.",
		DocURL:   "https://liveroute.dev/docs/errors/R031",
	},

	CodeInternal: {
		Category: CategoryRouting,
		Message:  "Internal error",
		DocURL:   "https://liveroute.dev/docs/errors/R099",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a custom error template.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
