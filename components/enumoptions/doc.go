// Package enumoptions serves static enum option lists in the enum endpoint
// wire format (a JSON array of {value, label} objects) so fixtures and the
// preview server can stand in for the backend's enum sources.
//
// The handler responds to GET and HEAD under a chi router, supports an
// optional search query and limit, and can inject latency or failures per
// source to exercise loading and fallback states.
package enumoptions
