package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/icpep-se/certmailer/pkg/batch"
	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/credentials"
	"github.com/icpep-se/certmailer/pkg/mail"
	"github.com/icpep-se/certmailer/pkg/output"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath     string
	cfg            *config.Config
	outputFormat   string
	debug          bool
	nonInteractive bool
	writer         io.Writer
	log            *zap.SugaredLogger

	// overridable in tests
	newSender func(cfg *config.Config, password string, log *zap.SugaredLogger) mail.Sender
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		writer:     cfg.OutputWriter,
		newSender:  mail.NewSender,
	}

	root := &cobra.Command{
		Use:          "certmailer",
		Short:        "Send certificates and meeting invites over Gmail SMTP",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("CERTMAILER_OUTPUT")
			}
			if !rt.nonInteractive {
				rt.nonInteractive = strings.EqualFold(os.Getenv("CERTMAILER_NON_INTERACTIVE"), "true")
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv("CERTMAILER_DEBUG"), "true")
			}
			if _, err := output.ParseFormat(rt.outputFormat); err != nil {
				return err
			}
			if rt.log == nil {
				logger, err := setupLogger(rt.debug)
				if err != nil {
					return err
				}
				rt.log = logger.Sugar()
			}

			// Commands that work without a config file.
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				return nil
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load(rt.configPath)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&rt.nonInteractive, "non-interactive", false, "Fail instead of prompting")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		NewSendCommand(),
		NewBulkCommand(),
		NewInviteCommand(),
		NewConfigCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func setupLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	// Disable automatic stacktraces for non-fatal levels to avoid noisy traces in WARN/INFO logs
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) OutputFormat() output.Format {
	f, err := output.ParseFormat(rt.outputFormat)
	if err != nil {
		return output.FormatTable
	}
	return f
}

func (rt *runtimeState) configPathValue() string {
	if rt.configPath == "" {
		return config.DefaultConfigPath()
	}
	return rt.configPath
}

// newRunner resolves the app password and wires a batch runner for the
// loaded config.
func (rt *runtimeState) newRunner() (*batch.Runner, error) {
	if rt.cfg == nil {
		return nil, errors.New("config not loaded")
	}
	password, err := credentials.Resolve(rt.cfg)
	if err != nil {
		return nil, err
	}
	sender := rt.newSender(rt.cfg, password, rt.log)
	return batch.NewRunner(rt.cfg, sender, rt.log), nil
}

// reportSummary prints the run outcome and turns failed sends into a
// non-zero exit status.
func (rt *runtimeState) reportSummary(summary *batch.Summary) error {
	if err := output.WriteSummary(rt.Writer(), rt.OutputFormat(), summary); err != nil {
		return err
	}
	if summary.AnyFailed() {
		return errSendsFailed
	}
	return nil
}

var errSendsFailed = errors.New("one or more sends failed")
