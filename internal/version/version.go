package version

// Version is the graphcore release, overridden at link time with
// -ldflags "-X github.com/born-ml/graphcore/internal/version.Version=...".
var Version string = "0.1.0"
