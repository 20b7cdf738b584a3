package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/replicate/rangefetch/pkg/version"
)

const VersionCMDName = "version"

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   VersionCMDName,
		Short: "print version and build information",
		Long:  "Print the version, build time and the user agent sent to the download API",
		Args:  cobra.NoArgs,
		// skip the root's flag processing, version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			buildTime := version.BuildTime
			if buildTime == "" {
				buildTime = "unknown"
			}
			fmt.Fprintf(out, "rangefetch Version %s - Build Time %s\n", version.GetVersion(), buildTime)
			fmt.Fprintf(out, "User-Agent: %s\n", version.UserAgent())
			fmt.Fprintf(out, "Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
