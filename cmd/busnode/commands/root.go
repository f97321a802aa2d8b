package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for busnode
var RootCmd = &cobra.Command{
	Use:              "busnode",
	Short:            "multi-drop bus node",
	TraverseChildren: true,
}
