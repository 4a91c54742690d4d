package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/ScrewVolt/halov2/pkg/chatlog"
	"github.com/ScrewVolt/halov2/pkg/cli"
	"github.com/ScrewVolt/halov2/pkg/kv"
	"github.com/ScrewVolt/halov2/pkg/patient"
	"github.com/ScrewVolt/halov2/pkg/scribe"
	"github.com/ScrewVolt/halov2/pkg/storage"
)

var (
	// Global flags
	cfgFile string
	verbose bool

	// Global configuration
	globalConfig *cli.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "halo",
	Short: "Continuous capture and clinical documentation CLI",
	Long: `halo captures nurse/patient conversations, transcribes them in short
segments, keeps an ordered per-patient message log, and turns the
conversation into an AI summary with a structured nursing chart.

Examples:
  # Create a patient and send a typed message
  halo patient add "Dana Reyes"
  halo send <patient-id> "nurse starting rounds"

  # Record from stdin audio until interrupted
  arecord -f S16_LE -r 16000 | halo record <patient-id>

  # Generate the summary and render the report
  halo summarize <patient-id>
  halo report <patient-id> -o report.md
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.halo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(patientCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() {
	var err error
	globalConfig, err = cli.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func getConfig() *cli.Config {
	return globalConfig
}

// openStore opens the Badger-backed store at the configured data directory.
// The caller must Close it.
func openStore() (kv.Store, error) {
	cfg := getConfig()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: cfg.DataDir})
}

// openLog builds the chat log for one patient, verifying the patient exists.
func openLog(ctx context.Context, store kv.Store, patientID string) (*chatlog.Log, error) {
	reg := patient.NewRegistry(store, getConfig().User)
	if _, err := reg.Get(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient %s: %w", patientID, err)
	}
	return chatlog.New(store, getConfig().User, patientID), nil
}

// newTranscriber builds the transcription client for the configured backend.
func newTranscriber() scribe.Transcriber {
	return scribe.NewClient(getConfig().BaseURL)
}

// newSummarizer builds the configured summary backend.
func newSummarizer() (scribe.Summarizer, error) {
	cfg := getConfig()
	switch cfg.Summarizer {
	case cli.BackendOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("summarizer %q requires OPENAI_API_KEY", cfg.Summarizer)
		}
		var opts []scribe.OpenAIOption
		if cfg.OpenAIModel != "" {
			opts = append(opts, scribe.WithModel(cfg.OpenAIModel))
		}
		return scribe.NewOpenAISummarizer(key, opts...), nil
	default:
		return scribe.NewClient(cfg.BaseURL), nil
	}
}

// newArchive builds the configured segment archive, or nil when disabled.
func newArchive() (storage.FileStore, error) {
	cfg := getConfig()
	if cfg.Archive == nil {
		return nil, nil
	}
	if cfg.Archive.Dir != "" {
		return storage.NewLocal(cfg.Archive.Dir)
	}
	if cfg.Archive.S3Bucket == "" {
		return nil, fmt.Errorf("archive config needs either dir or s3_bucket")
	}
	opts := s3.Options{
		Region: cfg.Archive.S3Region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	}
	if cfg.Archive.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Archive.S3Endpoint)
		opts.UsePathStyle = true
	}
	return storage.NewS3(s3.New(opts), cfg.Archive.S3Bucket, cfg.Archive.S3Prefix), nil
}

func printVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
