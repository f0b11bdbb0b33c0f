// Package errors provides structured, coded errors for vmsync.
//
// Every error raised by the view-model layer carries a stable code that maps
// to a short message, a longer explanation and a documentation link. Codes are
// grouped by category:
//   - usage: a caller broke an API contract (E001-E019)
//   - protocol: an update payload asked for a list operation whose
//     preconditions do not hold (E020-E039)
//   - transport: the connection facade failed to deliver a message (E060-E079)
//   - config: vmsync.json could not be loaded or is invalid (E120-E139)
//   - cli: command line misuse (E140-E159)
//
// # Usage
//
//	err := errors.New("E021").
//	    WithDetail("list 'items' has no registered item key").
//	    WithSuggestion("Send items_itemKey from the server view model")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E021: Missing item key
//	//
//	//   list 'items' has no registered item key
//	//
//	//   Hint: Send items_itemKey from the server view model
//	//
//	//   Learn more: https://vango.dev/docs/vmsync/errors/E021
package errors
