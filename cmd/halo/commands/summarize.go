package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ScrewVolt/halov2/pkg/chart"
	"github.com/ScrewVolt/halov2/pkg/patient"
	"github.com/ScrewVolt/halov2/pkg/report"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <patient-id>",
	Short: "Generate the AI summary and chart for a patient",
	Long: `Generate the AI summary for a patient from their full message log.

The summary and the chart sections parsed from it are stored on the
patient record together, replacing any previous summary.`,
	Args: cobra.ExactArgs(1),
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
		transcript, err := log.Transcript(cmd.Context())
		if err != nil {
			return err
		}

		summarizer, err := newSummarizer()
		if err != nil {
			return err
		}
		reg := patient.NewRegistry(store, getConfig().User)
		gen := patient.NewGenerator(reg, summarizer)

		rec, err := gen.Generate(cmd.Context(), args[0], transcript)
		if err != nil {
			return err
		}

		fmt.Println(rec.Summary)
		c := chart.Chart{Sections: rec.Chart}
		if !c.Empty() {
			fmt.Println()
			for _, sec := range c.Ordered() {
				fmt.Printf("%s: %s\n", sec.Name, sec.Text)
			}
		}
		return nil
	},
}

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report <patient-id>",
	Short: "Render a patient's session report as markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		reg := patient.NewRegistry(store, getConfig().User)
		rec, err := reg.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		log, err := openLog(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}
		entries, err := log.Entries(cmd.Context())
		if err != nil {
			return err
		}

		out := os.Stdout
		if reportOutput != "" {
			f, err := os.Create(reportOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return report.Render(out, rec, entries)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to a file instead of stdout")
}
