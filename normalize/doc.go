// Package normalize rewrites date-shaped request data into the backend's
// DD-MM-YYYY wire format.
//
// A field is date-shaped when its key is one of date, startDate, endDate or
// completionDate (case-insensitive), or when its value looks like an ISO-8601
// date or date-time. Values already in DD-MM-YYYY form are left alone, so
// normalizing twice yields the same result. Fields keyed exactly "timestamp"
// are never rewritten; request tracing relies on them staying ISO-8601.
//
// # Mutation Contract
//
// Value mutates nested maps and slices in place and returns the same
// top-level reference it was given (for maps and slices). Callers holding a
// reference to any part of the payload observe the normalized values. This is
// part of the contract: the transport normalizes the decoded body once and
// then encodes that same tree.
//
//	body := map[string]any{
//	    "date":  "2024-03-05",
//	    "items": []any{map[string]any{"endDate": "2024-04-01T10:00:00Z"}},
//	}
//	normalize.Value(body)
//	// body["date"] == "05-03-2024"
//	// body["items"].([]any)[0].(map[string]any)["endDate"] == "01-04-2024"
//
// Traversal is cycle-safe: a map or slice already visited on the current
// walk is not descended into again.
package normalize
