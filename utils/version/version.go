package version

import (
	"fmt"
	"runtime"
)

// 构建时通过 -ldflags "-X chatorder-backend/utils/version.CommitId=..." 注入
var (
	GoVersion  = runtime.Version()
	CommitId   string
	BranchName string
	BuildTime  string
	AppVersion = "dev"
)

func PrintVersion() string {
	return fmt.Sprintf("go version: %s\n", GoVersion) +
		fmt.Sprintf("git commit ID: %s\n", CommitId) +
		fmt.Sprintf("git branch name: %s\n", BranchName) +
		fmt.Sprintf("app build time: %s\n", BuildTime) +
		fmt.Sprintf("app version: %s\n", AppVersion)
}
