// Package cli implements the knowledge operator commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/bootstrap"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
)

var envFile string

// ErrNoMongo is returned by commands that need the shared knowledge store
var ErrNoMongo = errors.New("MONGODB_URI is required: the in-memory store does not outlive this command")

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Maintain the GDG support knowledge base",
	Long:  "Operator tool for the support engine: import knowledge, clean it up, warm caches and issue admin tokens.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Environment file to load before reading configuration")
}

func loadConfig() *config.Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", envFile, err)
		}
	}
	return config.Load()
}

// openComponents builds the shared components; requireMongo rejects a memory-only setup
func openComponents(cmd *cobra.Command, requireMongo bool) (*bootstrap.Components, error) {
	cfg := loadConfig()
	if requireMongo && cfg.MongoURI == "" {
		return nil, ErrNoMongo
	}
	return bootstrap.Build(cmd.Context(), cfg, nil)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
