package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"admem/internal/export"
	"admem/internal/storage"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current project's decisions as compressed JSON",
	Long: `Writes the full decision history of the current project as
zstd-compressed JSON, suitable for backup or transfer. Embeddings are not
exported; they are regenerated on demand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		status, err := application.svc.ProjectStatus(cmd.Context(), workingDir())
		if err != nil {
			return err
		}

		decisions, err := application.engine.Timeline(status.Project.ID, storage.TimelineFilter{})
		if err != nil {
			return err
		}

		file, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer file.Close()

		count, err := export.Write(file, status.Project, decisions)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d decisions from %s to %s\n", count, status.Project.Name, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "decisions.json.zst", "Output file")
	rootCmd.AddCommand(exportCmd)
}
