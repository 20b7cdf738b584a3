package root

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/replicate/rangefetch/pkg/cli"
	"github.com/replicate/rangefetch/pkg/config"
	"github.com/replicate/rangefetch/pkg/optname"
)

const rootLongDesc = `
rangefetch

rangefetch downloads files held behind a staging download API. It waits until the API reports
the file as staged, then fetches the file in fixed size parts over parallel HTTP range requests.

Parts are written into place as they arrive, behind the envelope the API returns for the file,
so the destination ends up as the envelope immediately followed by the file content. A single
failed part aborts the download and the partial destination is removed.
`

func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rangefetch [flags] <file-id> <dest>",
		Short: "rangefetch",
		Long:  rootLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.PersistentStartupProcessFlags()
		},
		RunE:    runRootCMD,
		Args:    cobra.ExactArgs(2),
		Example: `  rangefetch --api-url https://api.example.com --token $TOKEN 7f3c2a file.bin`,
	}
	cmd.SetUsageTemplate(cli.UsageTemplate)
	err := config.AddRootPersistentFlags(cmd)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cmd
}

func runRootCMD(cmd *cobra.Command, args []string) error {
	// After we run through the PreRun functions we want to silence usage from being printed
	// on all errors
	cmd.SilenceUsage = true

	fileID := args[0]
	dest := args[1]

	log.Info().Str("file_id", fileID).
		Str("dest", dest).
		Str("part_size", viper.GetString(optname.PartSize)).
		Int("concurrency", viper.GetInt(optname.Concurrency)).
		Msg("Initiating")

	if viper.GetString(optname.OutputConsumer) != config.ConsumerNull {
		if err := cli.EnsureDestinationNotExist(dest); err != nil {
			return err
		}
	}

	return cli.WithPIDFile(viper.GetString(optname.PIDFile), func() error {
		return rootExecute(cmd.Context(), fileID, dest)
	})
}

// rootExecute is the main function of the program and encapsulates the general logic
// returns any/all errors to the caller.
func rootExecute(ctx context.Context, fileID, dest string) error {
	getter, err := cli.NewGetter()
	if err != nil {
		return err
	}
	_, _, err = getter.DownloadFile(ctx, fileID, dest)
	return err
}
