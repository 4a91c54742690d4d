package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ScrewVolt/halov2/pkg/capture"
)

var (
	recordInput    string
	recordInterval time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record <patient-id>",
	Short: "Capture audio and transcribe it continuously",
	Long: `Capture audio and transcribe it continuously until interrupted.

Audio is read from stdin by default (pipe a microphone capture tool into
it), or from a file with --input. Every interval the buffered audio is
sent to the transcription backend; recognized speech is speaker-tagged
and appended to the patient's log while the next segment keeps recording.

Press Ctrl-C to stop. The final partial segment is still transcribed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		patientID := args[0]

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		log, err := openLog(cmd.Context(), store, patientID)
		if err != nil {
			return err
		}

		archive, err := newArchive()
		if err != nil {
			return err
		}

		interval := recordInterval
		if interval <= 0 {
			interval = cfg.SegmentInterval()
		}

		open := func(context.Context) (io.ReadCloser, error) {
			if recordInput != "" {
				return os.Open(recordInput)
			}
			return io.NopCloser(os.Stdin), nil
		}

		sess, err := capture.New(capture.Config{
			Open:          open,
			Transcriber:   newTranscriber(),
			Log:           log,
			Interval:      interval,
			Archive:       archive,
			ArchivePrefix: patientID,
			Notify: func(err error) {
				fmt.Fprintln(os.Stderr, "segment error:", err)
			},
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The session runs on the base context so an interrupt stops the
		// capture loop without cancelling the final segment's transcription.
		if err := sess.Start(cmd.Context()); err != nil {
			return err
		}
		printVerbose("recording every %s, Ctrl-C to stop", interval)

		// Either the user interrupts or the input stream runs out.
		for ctx.Err() == nil && sess.State() == capture.Recording {
			time.Sleep(100 * time.Millisecond)
		}
		sess.Stop()
		sess.Wait()
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordInput, "input", "i", "", "read audio from a file instead of stdin")
	recordCmd.Flags().DurationVar(&recordInterval, "interval", 0, "segment length (default from config)")
}
