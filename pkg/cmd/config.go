package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/icpep-se/certmailer/pkg/config"
	"github.com/icpep-se/certmailer/pkg/credentials"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the certmailer configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigSetPasswordCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		senderEmail string
		senderName  string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			cfg.SenderEmail = senderEmail
			cfg.SenderName = senderName
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&senderEmail, "sender-email", "", "Gmail address to send from")
	cmd.Flags().StringVar(&senderName, "sender-name", "", "Display name for the From header")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	_ = cmd.MarkFlagRequired("sender-email")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			// Never echo the app password back out.
			view := *rt.cfg
			if view.AppPassword != "" {
				view.AppPassword = "<redacted>"
			}
			data, err := yaml.Marshal(&view)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(rt.Writer(), string(data))
			return nil
		},
	}
}

func newConfigSetPasswordCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Store the Gmail app password in the system keyring",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if password == "" {
				if rt.nonInteractive {
					return errors.New("--password is required in non-interactive mode")
				}
				_, _ = fmt.Fprint(rt.Writer(), "App password: ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, err := reader.ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				password = strings.TrimSpace(line)
			}
			if password == "" {
				return errors.New("password must not be empty")
			}
			if err := credentials.Store(rt.cfg.SenderEmail, password); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Password stored for %s\n", rt.cfg.SenderEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "App password (prompted when omitted)")

	return cmd
}
