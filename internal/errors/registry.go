package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (S001-S019)
	// ============================================

	"S001": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No surface.json, surface.yaml or surface.yml was found in the directory or any parent.",
		Suggestion: "Pass --page to run without a config file, or create surface.json",
	},
	"S002": {
		Category: CategoryConfig,
		Message:  "Invalid config syntax",
		Detail:   "The config file could not be parsed.",
	},
	"S003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A config field has a value outside its allowed range.",
	},
	"S004": {
		Category: CategoryConfig,
		Message:  "Config file unreadable",
		Detail:   "The config file exists but could not be read.",
	},
	"S005": {
		Category:   CategoryConfig,
		Message:    "No page configured",
		Detail:     "The surface needs a control page to bind.",
		Suggestion: `Set "page" in surface.json or pass --page`,
	},

	// ============================================
	// Page Errors (S020-S039)
	// ============================================

	"S020": {
		Category: CategoryPage,
		Message:  "Page not found",
		Detail:   "The control page file does not exist.",
	},
	"S021": {
		Category: CategoryPage,
		Message:  "Page fetch failed",
		Detail:   "The control page could not be downloaded.",
	},
	"S022": {
		Category: CategoryPage,
		Message:  "Page parse failed",
		Detail:   "The control page is not parseable HTML.",
	},
	"S023": {
		Category:   CategoryPage,
		Message:    "Unsupported page source",
		Detail:     "Pages are loaded from a file path, an http(s) URL or an s3://bucket/key location.",
		Suggestion: "Use a path, http://, https:// or s3://",
	},
	"S024": {
		Category: CategoryPage,
		Message:  "S3 object fetch failed",
		Detail:   "The control page could not be read from S3.",
	},

	// ============================================
	// Protocol Errors (S040-S059)
	// ============================================

	"S040": {
		Category:   CategoryProtocol,
		Message:    "Cannot derive update endpoint",
		Detail:     "The websocket endpoint is derived from the page URL, which must be http or https.",
		Suggestion: "Set \"url\" to the address the page is served from",
	},
	"S041": {
		Category: CategoryProtocol,
		Message:  "Connection failed",
		Detail:   "The update websocket could not be opened.",
	},

	// ============================================
	// CLI Errors (S060-S079)
	// ============================================

	"S060": {
		Category:   CategoryCLI,
		Message:    "Invalid update argument",
		Detail:     "Updates are given as channel=value.",
		Suggestion: "Quote values with spaces: 'room.name=Main hall'",
	},
	"S061": {
		Category: CategoryCLI,
		Message:  "Invalid JSON value",
		Detail:   "The value could not be decoded as JSON.",
	},
	"S062": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP side port stopped with an error.",
	},
	"S063": {
		Category: CategoryCLI,
		Message:  "Element not found",
		Detail:   "No element matches the given selector.",
	},
	"S064": {
		Category: CategoryCLI,
		Message:  "Output failed",
		Detail:   "The result could not be written.",
	},
}

// GetAllCodes returns all registered error codes in order.
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

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
