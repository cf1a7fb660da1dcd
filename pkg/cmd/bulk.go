package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/icpep-se/certmailer/pkg/batch"
	"github.com/icpep-se/certmailer/pkg/config"
)

func NewBulkCommand() *cobra.Command {
	var (
		subject     string
		attachCerts bool
		requireCert bool
		testAddr    string
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Send certificates to every configured recipient",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.cfg.RequireRecipients(); err != nil {
				return err
			}
			runner, err := rt.newRunner()
			if err != nil {
				return err
			}
			opts := batch.Options{
				Mode:        batch.ModeCertificate,
				Subject:     subject,
				AttachCerts: attachCerts,
				RequireCert: requireCert,
			}
			if testAddr != "" {
				if err := runTestPhase(cmd, rt, runner, testAddr, opts, yes); err != nil {
					return err
				}
			}
			summary, err := runner.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return rt.reportSummary(summary)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "Your Certificate of Participation", "Email subject")
	cmd.Flags().BoolVar(&attachCerts, "attach-certs", false, "Attach the matching certificate PDF per recipient")
	cmd.Flags().BoolVar(&requireCert, "require-cert", false, "Skip recipients without a matching certificate")
	cmd.Flags().StringVar(&testAddr, "test", "", "Send a trial message to this address first")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation after the trial message")

	return cmd
}

// runTestPhase sends one trial message and asks for confirmation before the
// real batch starts. Certificate lookups are not forced for the trial
// address since it usually has no certificate of its own.
func runTestPhase(cmd *cobra.Command, rt *runtimeState, runner *batch.Runner, addr string, opts batch.Options, yes bool) error {
	trial := opts
	trial.RequireCert = false
	summary, err := runner.RunOne(cmd.Context(), config.Recipient{Email: addr}, trial)
	if err != nil {
		return err
	}
	if summary.AnyFailed() {
		return fmt.Errorf("test send to %s failed: %s", addr, summary.Results[0].Error)
	}
	_, _ = fmt.Fprintf(rt.Writer(), "Test message sent to %s\n", addr)
	if yes {
		return nil
	}
	if rt.nonInteractive {
		return errors.New("confirmation required after test send; pass --yes in non-interactive mode")
	}
	return confirm(cmd, rt, fmt.Sprintf("Proceed with sending to %d recipients?", len(rt.cfg.Recipients)))
}

func confirm(cmd *cobra.Command, rt *runtimeState, prompt string) error {
	_, _ = fmt.Fprintf(rt.Writer(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return errors.New("aborted")
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	default:
		return errors.New("aborted")
	}
}
