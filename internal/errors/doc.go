// Package errors provides structured, actionable error messages for the
// surface command and its loaders.
//
// Every error carries a code from the registry, a short message, an
// optional longer explanation, and a hint on how to fix it. Errors about a
// file (a config file with a syntax error, say) also carry the location and
// the surrounding lines.
//
// # Error Categories
//
//   - config: surface.json / surface.yaml problems
//   - page: loading or parsing the control page
//   - protocol: endpoint and connection problems
//   - cli: bad command-line input
//
// # Usage
//
//	err := errors.New("S002").
//	    WithLocation("surface.json", 4, 17).
//	    WithSuggestion("Remove the trailing comma")
//
//	fmt.Print(err.Format())
//	// Output:
//	// ERROR S002: Invalid config syntax
//	//
//	//   surface.json:4:17
//	//
//	//     3 │   "page": "panel.html",
//	//   → 4 │   "debug": true,
//	//       │                 ^
//	//     5 │ }
//	//
//	//   Hint: Remove the trailing comma
package errors
