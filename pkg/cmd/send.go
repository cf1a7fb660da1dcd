package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/icpep-se/certmailer/pkg/batch"
	"github.com/icpep-se/certmailer/pkg/config"
)

func NewSendCommand() *cobra.Command {
	var (
		to      string
		name    string
		subject string
		certURL string
		attach  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a single email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if to == "" {
				return errors.New("--to is required")
			}
			runner, err := rt.newRunner()
			if err != nil {
				return err
			}
			recipient := config.Recipient{
				Name:           name,
				Email:          to,
				CertificateURL: certURL,
			}
			summary, err := runner.RunOne(cmd.Context(), recipient, batch.Options{
				Mode:       batch.ModeCertificate,
				Subject:    subject,
				AttachPath: attach,
			})
			if err != nil {
				return err
			}
			return rt.reportSummary(summary)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient email address")
	cmd.Flags().StringVar(&name, "name", "", "Recipient display name")
	cmd.Flags().StringVar(&subject, "subject", "Your Certificate", "Email subject")
	cmd.Flags().StringVar(&certURL, "cert-url", "", "Certificate download link shown in the body")
	cmd.Flags().StringVar(&attach, "attach", "", "Path of a file to attach")

	_ = cmd.MarkFlagRequired("to")
	return cmd
}
