package version

// Version is the tool version, overridden at release build time with
// -ldflags "-X btrsnap/src/version.Version=...".
var Version = "0.1.0-dev"
