package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <patient-id> <text>",
	Short: "Append a typed message to a patient's log",
	Long: `Append a typed message to a patient's log.

The first word decides the speaker tag: a message starting with "nurse" or
"patient" (any case) is tagged accordingly, anything else is tagged
Unspecified. The stored entry carries a UTC timestamp prefix.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		log, err := openLog(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		entry, err := log.AppendTagged(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		fmt.Println(entry.Text)
		return nil
	},
}

var showIDs bool

var logCmd = &cobra.Command{
	Use:   "log <patient-id>",
	Short: "Print a patient's message log in timestamp order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		log, err := openLog(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		entries, err := log.Entries(cmd.Context())
		if err != nil {
			return err
		}
		for _, e := range entries {
			if showIDs {
				fmt.Printf("%s\t%s\n", e.ID, e.Text)
			} else {
				fmt.Println(e.Text)
			}
		}
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <patient-id> <entry-id> <text>",
	Short: "Replace the text of an existing log entry",
	Long: `Replace the text of an existing log entry in place. The entry keeps
its position and timestamp; only the text changes. Use 'halo log --ids'
to find entry IDs.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		log, err := openLog(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		entry, err := log.Edit(cmd.Context(), args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(entry.Text)
		return nil
	},
}

func init() {
	logCmd.Flags().BoolVar(&showIDs, "ids", false, "print entry IDs alongside text")
}
