package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ScrewVolt/halov2/pkg/patient"
)

var patientCmd = &cobra.Command{
	Use:   "patient",
	Short: "Manage patient records",
}

var patientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a new patient record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := patient.NewRegistry(store, getConfig().User)
		rec, err := reg.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", rec.ID, rec.Name)
		return nil
	},
}

var patientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patient records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := patient.NewRegistry(store, getConfig().User)
		recs, err := reg.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATED\tSUMMARY")
		for _, rec := range recs {
			hasSummary := "-"
			if rec.Summary != "" {
				hasSummary = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				rec.ID, rec.Name, rec.CreatedAt.Format("2006-01-02 15:04"), hasSummary)
		}
		return w.Flush()
	},
}

var patientRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a patient record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := patient.NewRegistry(store, getConfig().User)
		rec, err := reg.Rename(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", rec.ID, rec.Name)
		return nil
	},
}

var patientRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a patient record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := patient.NewRegistry(store, getConfig().User)
		return reg.Delete(cmd.Context(), args[0])
	},
}

func init() {
	patientCmd.AddCommand(patientAddCmd)
	patientCmd.AddCommand(patientListCmd)
	patientCmd.AddCommand(patientRenameCmd)
	patientCmd.AddCommand(patientRemoveCmd)
}
