// Package version reports build information for the injectord binary.
//
// Version, commit, branch and build time can be set at link time:
//
//	go build -ldflags "-X github.com/kbukum/injector/version.Version=1.0.0" ./cmd/injectord
//
// Unset values fall back to the VCS stamps the Go toolchain embeds.
package version
