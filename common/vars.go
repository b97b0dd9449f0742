// Package common holds process-wide build information and logger setup shared
// by the binaries under cmd/.
package common

// Version is overridden at build time with -ldflags "-X github.com/ruteri/driving-tests-backend/common.Version=..."
var Version = "dev"

// PackageName is used as the metrics namespace and default log service tag.
const PackageName = "quizbackend"
