package analysis

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/nguyentantai21042004/minutes-flow/pkg/executor"
)

// Request holds the three inputs of one analysis job.
type Request struct {
	AudioPath  string
	Credential string
	OutputDir  string
}

// Result is the payload of a successful analysis.
type Result struct {
	Transcription string
	Data          StructuredData
	DocumentPath  string
}

// Analyze runs the job exactly once. The returned error is one of
// *InputError, *ProcessFailure, *MalformedOutput or *AnalysisFailure.
func (i *implInvoker) Analyze(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if i.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
	}

	cmd := i.buildCommand(req)
	i.logger.Info(ctx, "Running analysis: %s %s", cmd.Name, req.AudioPath)

	startTime := time.Now()
	out, runErr := i.executor.Run(ctx, cmd)
	res, err := classify(out, runErr)
	duration := time.Since(startTime)

	kind := Kind(err)
	i.metrics.ObserveAnalysis(kind, duration)

	switch e := err.(type) {
	case nil:
		i.logger.Info(ctx, "Analysis completed in %s", duration)
	case *ProcessFailure:
		i.logger.Error(ctx, "Analysis process failed after %s (code %d): %s", duration, e.ExitCode, lastLine(e.Stderr))
	case *MalformedOutput:
		i.logger.Error(ctx, "Analysis output malformed after %s: %v", duration, e.Err)
	default:
		i.logger.Warn(ctx, "Analysis reported failure after %s: %v", duration, err)
	}

	return res, err
}

func (i *implInvoker) buildCommand(req Request) executor.Command {
	args := make([]string, 0, len(i.cfg.Command)+2)
	args = append(args, i.cfg.Command[1:]...)
	args = append(args, req.AudioPath, OutputDirFlag, req.OutputDir)

	env := []string{CredentialEnv + "=" + req.Credential}
	if i.cfg.Model != "" {
		env = append(env, ModelEnv+"="+i.cfg.Model)
	}

	return executor.Command{
		Name: i.cfg.Command[0],
		Args: args,
		Env:  env,
	}
}

// classify maps a finished run onto the outcome precedence:
// process failure, then malformed output, then analysis failure.
func classify(out *executor.Result, runErr error) (*Result, error) {
	if out == nil {
		out = &executor.Result{ExitCode: -1}
	}

	if runErr != nil || out.ExitCode != 0 {
		return nil, &ProcessFailure{
			ExitCode: out.ExitCode,
			Stderr:   string(out.Stderr),
			Err:      runErr,
		}
	}

	env, err := ParseEnvelope(out.Stdout)
	if err != nil {
		return nil, &MalformedOutput{Raw: string(out.Stdout), Err: err}
	}

	if !*env.Success {
		return nil, &AnalysisFailure{Message: env.Error}
	}

	return &Result{
		Transcription: env.Transcription,
		Data:          *env.StructuredData,
		DocumentPath:  env.DocPath,
	}, nil
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Credential) == "" {
		return &InputError{Field: "credential", Reason: "must not be empty"}
	}
	if req.OutputDir == "" {
		return &InputError{Field: "output_dir", Reason: "must not be empty"}
	}
	if req.AudioPath == "" {
		return &InputError{Field: "audio_path", Reason: "must not be empty"}
	}

	info, err := os.Stat(req.AudioPath)
	if err != nil {
		return &InputError{Field: "audio_path", Reason: err.Error()}
	}
	if info.IsDir() {
		return &InputError{Field: "audio_path", Reason: "is a directory"}
	}
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return &InputError{Field: "audio_path", Reason: err.Error()}
	}
	_ = f.Close()
	return nil
}

// Kind returns the outcome label for an Analyze error, looking through wrapping.
func Kind(err error) string {
	var (
		inputErr     *InputError
		processErr   *ProcessFailure
		malformedErr *MalformedOutput
		analysisErr  *AnalysisFailure
	)
	switch {
	case err == nil:
		return KindSuccess
	case errors.As(err, &inputErr):
		return KindInput
	case errors.As(err, &processErr):
		return KindProcessFailure
	case errors.As(err, &malformedErr):
		return KindMalformedOutput
	case errors.As(err, &analysisErr):
		return KindAnalysisFailure
	default:
		return "unknown"
	}
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
