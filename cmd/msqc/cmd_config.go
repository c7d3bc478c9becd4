package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"msqc/internal/config"
)

var flagConfigPath string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage report configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every option at its default",
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVarP(&flagConfigPath, "path", "p", config.File, "where to write the config file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(flagConfigPath); err == nil {
		return fmt.Errorf("config file %s already exists", flagConfigPath)
	}
	if err := config.DefaultConfig().Save(flagConfigPath); err != nil {
		return err
	}
	fmt.Println("wrote", flagConfigPath)
	return nil
}
