package main

import (
	"encoding/json"
	"fmt"

	goversion "github.com/caarlos0/go-version"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	gitCommit = ""
	buildDate = ""
)

func buildVersionInfo() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("westvm",
			"Zephyr build/run proxy for Multipass VMs",
			"https://github.com/westvm/westvm"),
		func(i *goversion.Info) {
			if version != "" {
				i.GitVersion = version
			}
			if gitCommit != "" {
				i.GitCommit = gitCommit
			}
			if buildDate != "" {
				i.BuildDate = buildDate
			}
		},
	)
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildVersionInfo()
			if jsonMode {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}
			fmt.Print(info.String())
			return nil
		},
	}
}
