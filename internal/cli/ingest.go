package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import a YAML or JSON knowledge file",
		Run:   runIngest,
	}
	cmd.Flags().String("file", "", "Knowledge file (default: $KNOWLEDGE_FILE)")
	cmd.Flags().Bool("reset", false, "Delete every stored chunk before importing")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	c, err := openComponents(cmd, true)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close(cmd.Context())

	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		file = c.Config.KnowledgeFile
	}
	if file == "" {
		exitErr("ingest", errors.New("no --file given and KNOWLEDGE_FILE is unset"))
	}
	reset, _ := cmd.Flags().GetBool("reset")

	report, err := c.Ingestion.IngestFile(cmd.Context(), file, services.IngestOptions{Reset: reset})
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(report)
}
