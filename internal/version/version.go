// Package version carries the build version, set at link time with
// -ldflags "-X methcall/internal/version.Version=...".
package version

var Version = "dev"
