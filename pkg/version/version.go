package version

// Current defines the application version.
// It defaults to "dev" and is set at release time through -ldflags.
var Current = "dev"

const AppName = "cloudsweep"
