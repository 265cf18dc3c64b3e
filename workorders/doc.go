// Package workorders manages maintenance work orders on the backend.
//
// Reads are cached and deduplicated by the underlying service.Base and may
// fall back to synthetic data; writes never do. A successful write clears
// the whole cache of the work order service, so the next List reflects it.
package workorders
