package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://vango.dev/docs/vmsync/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Usage Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryUsage,
		Message:  "View model already connected",
		Detail:   "A component is attempting to connect to a view model id that is already active. If it belongs to an unmounted component, call Destroy on its proxy when the component unmounts.",
		DocURL:   docBase + "E001",
	},
	"E002": {
		Category: CategoryUsage,
		Message:  "Missing connect arguments",
		Detail:   "Connect requires a non-empty view model id and a component.",
		DocURL:   docBase + "E002",
	},
	"E003": {
		Category: CategoryUsage,
		Message:  "Extension already registered",
		Detail:   "An extension with the same name is already registered.",
		DocURL:   docBase + "E003",
	},
	"E004": {
		Category: CategoryUsage,
		Message:  "Invalid extension",
		Detail:   "Extensions must be non-nil and have a non-empty name.",
		DocURL:   docBase + "E004",
	},

	// ============================================
	// Protocol Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryProtocol,
		Message:  "List not found",
		Detail:   "The list operation targets a state field that does not exist or is not a list.",
		DocURL:   docBase + "E020",
	},
	"E021": {
		Category: CategoryProtocol,
		Message:  "Missing item key",
		Detail:   "The list has no registered item key. Add a <list>_itemKey property to the server view model.",
		DocURL:   docBase + "E021",
	},
	"E022": {
		Category: CategoryProtocol,
		Message:  "Item missing key property",
		Detail:   "The list item does not carry the property registered as the list's item key.",
		DocURL:   docBase + "E022",
	},
	"E023": {
		Category: CategoryProtocol,
		Message:  "Item key already exists",
		Detail:   "An item with the same key value is already present in the list.",
		DocURL:   docBase + "E023",
	},
	"E024": {
		Category: CategoryProtocol,
		Message:  "Invalid list item",
		Detail:   "Keyed list operations require the item to be a JSON object.",
		DocURL:   docBase + "E024",
	},
	"E025": {
		Category: CategoryProtocol,
		Message:  "Invalid update payload",
		Detail:   "The update from the server is not a JSON object.",
		DocURL:   docBase + "E025",
	},
	"E026": {
		Category: CategoryProtocol,
		Message:  "Server-side exception",
		Detail:   "The server view model raised an exception while producing this response.",
		DocURL:   docBase + "E026",
	},
	"E027": {
		Category: CategoryProtocol,
		Message:  "Invalid item key declaration",
		Detail:   "The value of a <list>_itemKey property must be a property name string.",
		DocURL:   docBase + "E027",
	},
	"E028": {
		Category: CategoryProtocol,
		Message:  "Invalid hub message",
		Detail:   "A message from the hub could not be decoded.",
		DocURL:   docBase + "E028",
	},

	// ============================================
	// Transport Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryTransport,
		Message:  "Hub connection failed",
		Detail:   "Unable to establish the WebSocket connection to the hub.",
		DocURL:   docBase + "E060",
	},
	"E061": {
		Category: CategoryTransport,
		Message:  "Send failed",
		Detail:   "A message could not be written to the hub connection.",
		DocURL:   docBase + "E061",
	},
	"E062": {
		Category: CategoryTransport,
		Message:  "Dispose failed",
		Detail:   "The disposal notice for a view model could not be delivered.",
		DocURL:   docBase + "E062",
	},
	"E063": {
		Category: CategoryTransport,
		Message:  "Not connected",
		Detail:   "The hub connection is not live.",
		DocURL:   docBase + "E063",
	},
	"E064": {
		Category: CategoryTransport,
		Message:  "Connection lost",
		Detail:   "The hub connection dropped and will be re-established.",
		DocURL:   docBase + "E064",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid hub URL",
		Detail:   "The hub URL must be an absolute ws:// or wss:// URL.",
		DocURL:   docBase + "E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "A duration setting could not be parsed (e.g. \"10s\", \"500ms\").",
		DocURL:   docBase + "E122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid reconnect settings",
		Detail:   "The reconnect multiplier must be at least 1 and the maximum delay must not be below the initial delay.",
		DocURL:   docBase + "E123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid key=value argument",
		Detail:   "Arguments must be written as key=value.",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Config file not found",
		Detail:   "No vmsync.json or vmsync.toml was found at the given path.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Timed out waiting for view model",
		Detail:   "The view model did not load before the timeout elapsed.",
		DocURL:   docBase + "E142",
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
