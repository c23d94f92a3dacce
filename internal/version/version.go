package version

// Version is the admem release version, overridden at build time via
// -ldflags "-X admem/internal/version.Version=..."
var Version = "0.3.0-dev"
