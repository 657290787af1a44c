// Package startup handles configuration loading and startup logging for
// the guest gallery service.
//
// Configuration comes from environment variables, with an optional .env
// overlay for local development. Backend credentials are never embedded
// in the binary; they are read once at process start and injected into
// the components that need them.
package startup
