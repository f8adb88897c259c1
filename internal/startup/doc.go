// Package startup handles application initialization: configuration
// loading from environment variables, the startup banner, directory
// setup with write-access probing, dynamic route logging, and structured
// shutdown logging.
//
// Build information (version, commit, build time) is injected at build
// time via -ldflags and exposed through GetBuildInfo.
package startup
