// Command minutes-analyze is the analysis job run once per upload.
//
//	minutes-analyze <audio> --output-dir DIR
//
// It prints exactly one JSON envelope on stdout. Logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nguyentantai21042004/minutes-flow/internal/analysis"
	"github.com/nguyentantai21042004/minutes-flow/internal/gemini"
	"github.com/nguyentantai21042004/minutes-flow/internal/logger"
	"github.com/nguyentantai21042004/minutes-flow/internal/minutesdoc"
	"github.com/nguyentantai21042004/minutes-flow/internal/version"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var (
		outputDir string
		apiKey    string
		model     string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "minutes-analyze <audio-file>",
		Short:        "Transcribe and structure one meeting recording",
		Args:         cobra.ExactArgs(1),
		Version:      version.String(),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logger.NewWithWriter(logLevel, "text", os.Stderr)
			if apiKey == "" {
				apiKey = os.Getenv(analysis.CredentialEnv)
			}
			if v := os.Getenv(analysis.ModelEnv); v != "" && !cmd.Flags().Changed("model") {
				model = v
			}
			analyzer := gemini.New(gemini.SplitKeys(apiKey), model, log)

			env := run(ctx, analyzer, args[0], outputDir, log)
			return writeEnvelope(stdout, env)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the generated minutes document")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Gemini API key(s), comma separated (default $"+analysis.CredentialEnv+")")
	cmd.Flags().StringVar(&model, "model", gemini.DefaultModel, "Gemini model")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level for stderr output")
	_ = cmd.MarkFlagRequired("output-dir")

	return cmd
}

// run performs transcription, structuring and document generation. Every
// failure becomes a failure envelope.
func run(ctx context.Context, analyzer gemini.Analyzer, audioPath, outputDir string, log logger.Logger) analysis.Envelope {
	startTime := time.Now()
	filename := filepath.Base(audioPath)

	if _, err := os.Stat(audioPath); err != nil {
		return analysis.FailureEnvelope(fmt.Sprintf("read audio: %v", err))
	}

	// Step 1: Transcribe
	log.Info(ctx, "Step 1/3: Transcribing %s", filename)
	transcription, err := analyzer.Transcribe(ctx, audioPath)
	if err != nil {
		return analysis.FailureEnvelope(fmt.Sprintf("transcribe: %v", err))
	}

	// Step 2: Structure
	log.Info(ctx, "Step 2/3: Analyzing transcript (%d chars)", len(transcription))
	data, err := analyzer.Structure(ctx, transcription)
	if err != nil {
		return analysis.FailureEnvelope(fmt.Sprintf("analyze: %v", err))
	}

	// Step 3: Write the minutes document
	log.Info(ctx, "Step 3/3: Generating minutes document")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return analysis.FailureEnvelope(fmt.Sprintf("create output dir: %v", err))
	}
	docPath := filepath.Join(outputDir, minutesdoc.FileName(filename))
	minutes := minutesdoc.Minutes{
		Title:        filename,
		Topics:       data.MeetingTopics,
		Participants: data.Participants,
		KeyPoints:    data.KeyPoints,
		NextSteps:    data.NextSteps,
		Summary:      data.Summary,
	}
	if err := minutesdoc.Write(minutes, docPath); err != nil {
		return analysis.FailureEnvelope(fmt.Sprintf("write document: %v", err))
	}

	log.Info(ctx, "Done in %s: %s", time.Since(startTime), docPath)
	return analysis.SuccessEnvelope(filename, transcription, *data, docPath)
}

func writeEnvelope(w io.Writer, env analysis.Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(env)
}
