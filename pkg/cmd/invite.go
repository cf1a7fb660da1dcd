package cmd

import (
	"github.com/spf13/cobra"

	"github.com/icpep-se/certmailer/pkg/batch"
)

func NewInviteCommand() *cobra.Command {
	var (
		subject  string
		topic    string
		date     string
		when     string
		link     string
		testAddr string
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Send a Google Meet invitation to every configured recipient",
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
				Mode:    batch.ModeInvite,
				Subject: subject,
				Topic:   topic,
				Date:    date,
				Time:    when,
				Link:    link,
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

	cmd.Flags().StringVar(&subject, "subject", "Meeting Invitation", "Email subject")
	cmd.Flags().StringVar(&topic, "topic", "", "Meeting topic")
	cmd.Flags().StringVar(&date, "date", "", "Meeting date")
	cmd.Flags().StringVar(&when, "time", "", "Meeting time")
	cmd.Flags().StringVar(&link, "link", "", "Google Meet link")
	cmd.Flags().StringVar(&testAddr, "test", "", "Send a trial message to this address first")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation after the trial message")

	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("link")
	return cmd
}
