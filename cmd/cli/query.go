package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "query the node rpc",
}

func init() {
	queryCmd.AddCommand(heightCmd)
	queryCmd.AddCommand(tipCmd)
	queryCmd.AddCommand(paramsCmd)
	queryCmd.AddCommand(windowCmd)
	queryCmd.AddCommand(minedCmd)
	queryCmd.AddCommand(minableCmd)
	queryCmd.AddCommand(resourceUsageCmd)
}

var (
	heightCmd = &cobra.Command{
		Use:   "height",
		Short: "query the height of the active chain",
		Run: func(cmd *cobra.Command, args []string) {
			tip, err := client.Height()
			writeToConsole(tip.Height, err)
		},
	}

	tipCmd = &cobra.Command{
		Use:   "tip",
		Short: "query the height and hash of the active chain tip",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Height())
		},
	}

	paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "query the quorum parameters of the network",
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Params())
		},
	}

	windowCmd = &cobra.Command{
		Use:   "window <type> <height>",
		Short: "query the dkg instance and mining window of a quorum type at a height",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Window(args[0], argToHeight(args[1])))
		},
	}

	minedCmd = &cobra.Command{
		Use:   "mined <type> <quorum hash>",
		Short: "query the mined commitment of a dkg instance",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Mined(args[0], args[1]))
		},
	}

	minableCmd = &cobra.Command{
		Use:   "minable <type> <height>",
		Short: "query the commitment a block at height would carry for a quorum type",
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			writeToConsole(client.Minable(args[0], argToHeight(args[1])))
		},
	}
)

var resourceUsageCmd = &cobra.Command{
	Use:   "resource-usage",
	Short: "query the resource utilization of the node and its host",
	Run: func(cmd *cobra.Command, args []string) {
		writeToConsole(client.ResourceUsage())
	},
}

func argToHeight(arg string) uint64 {
	height, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		l.Fatal(err.Error())
	}
	return height
}
