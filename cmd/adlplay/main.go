// Command adlplay plays a Standard MIDI File through emulated OPL3 FM
// synthesis chips, the way the classic adlmidi family of players does
// (spec.md §1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var bankIndex, numCards, numFourOps int
	var listBanks bool

	cmd := &cobra.Command{
		Use:   "adlplay [midifile] [bank] [numcards] [numfourops]",
		Short: "Play a MIDI file through emulated OPL3 FM synthesis chips",
		Long: `adlplay renders a Standard MIDI File's note and controller events through a
bank of emulated OPL3 FM synthesis chips and streams the result to the
system audio device.

Run with no file argument, or with --list-banks, to print the available
instrument banks instead of playing anything.`,
		Args: cobra.MaximumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listBanks || len(args) == 0 {
				return runListBanks()
			}
			return runPlay(args, bankIndex, numCards, numFourOps)
		},
	}

	cmd.Flags().IntVar(&bankIndex, "bank", 0, "instrument bank index")
	cmd.Flags().IntVar(&numCards, "numcards", 1, "number of emulated OPL3 chips")
	cmd.Flags().IntVar(&numFourOps, "numfourops", -1, "number of four-operator channels (-1: choose automatically)")
	cmd.Flags().BoolVar(&listBanks, "list-banks", false, "print available instrument banks and exit")

	return cmd
}
