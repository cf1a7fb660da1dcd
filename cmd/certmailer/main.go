package main

import (
	"os"

	mailercmd "github.com/icpep-se/certmailer/pkg/cmd"
)

func main() {
	root := mailercmd.NewRootCommand(mailercmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
