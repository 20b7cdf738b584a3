package cmd

import (
	"github.com/spf13/cobra"

	"github.com/replicate/rangefetch/cmd/multifile"
	"github.com/replicate/rangefetch/cmd/root"
	"github.com/replicate/rangefetch/cmd/version"
)

func GetRootCommand() *cobra.Command {
	rootCMD := root.GetCommand()
	rootCMD.AddCommand(multifile.GetCommand())
	rootCMD.AddCommand(version.GetCommand())
	return rootCMD
}
