package multifile

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rangefetch "github.com/replicate/rangefetch/pkg"
	"github.com/replicate/rangefetch/pkg/cli"
	"github.com/replicate/rangefetch/pkg/logging"
	"github.com/replicate/rangefetch/pkg/optname"
)

const longDesc = `
'multifile' mode for rangefetch takes a manifest file as input (can use '-' for stdin) and downloads all files listed in the manifest.

The manifest is expected to be in the format of a newline-separated list of pairs of file ids and destination paths, separated by a space.
e.g.
7f3c2a /tmp/file1.bin

'multifile' will download files in parallel limited to the '--max-concurrent-files' limit for the number of files and
over-all limited to the '--concurrency' limit for parts in flight across all files.
`

const multifileExamples = `
  rangefetch multifile manifest.txt

  rangefetch multifile - < manifest.txt

  cat manifest.txt | rangefetch multifile -
`

// multifile mode config vars
var (
	maxConcurrentFiles int
)

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "multifile [flags] <manifest-file>",
		Short:   "download files from a manifest file in parallel",
		Long:    longDesc,
		Args:    cobra.ExactArgs(1),
		RunE:    runMultifileCMD,
		Example: multifileExamples,
	}

	cmd.PersistentFlags().IntVar(&maxConcurrentFiles, optname.MaxConcurrentFiles, 40, "Maximum number of files to download concurrently")
	err := viper.BindPFlags(cmd.PersistentFlags())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	return cmd
}

func runMultifileCMD(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	manifestPath := args[0]
	file, err := manifestFile(manifestPath)
	if err != nil {
		return err
	}
	defer file.Close()
	manifest, err := parseManifest(file)
	if err != nil {
		return fmt.Errorf("error processing manifest file %s: %w", manifestPath, err)
	}

	return cli.WithPIDFile(viper.GetString(optname.PIDFile), func() error {
		return multifileExecute(cmd.Context(), manifest)
	})
}

func multifileExecute(ctx context.Context, manifest rangefetch.Manifest) error {
	logger := logging.GetLogger()
	getter, err := cli.NewGetter()
	if err != nil {
		return err
	}
	if limit := getter.Options.MaxConcurrentFiles; limit > 0 {
		logger.Debug().Int("concurrent_file_limit", limit).Msg("Config")
	}

	_, _, err = getter.DownloadFiles(ctx, manifest)
	if err != nil {
		return fmt.Errorf("error downloading files: %w", err)
	}
	return nil
}
