package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"admem/internal/service"
)

var (
	timelineDays     int
	timelineCategory string
	timelineLimit    int
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Show project decisions in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		result, err := application.svc.Timeline(cmd.Context(), service.TimelineRequest{
			WorkingDir: workingDir(),
			Days:       timelineDays,
			Category:   timelineCategory,
			Limit:      timelineLimit,
		})
		if err != nil {
			return err
		}
		fmt.Println(service.RenderTimeline(result, timelineDays))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what admem knows about the current project",
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

		fmt.Printf("Project:    %s\n", status.Project.Name)
		if status.Project.RepositoryID != "" {
			fmt.Printf("Repository: %s\n", status.Project.RepositoryID)
		}
		fmt.Printf("Type:       %s\n", status.Project.ProjectType)
		if len(status.Project.TechStack) > 0 {
			fmt.Printf("Tech stack: %v\n", status.Project.TechStack)
		}
		fmt.Printf("Decisions:  %d\n", status.DecisionCount)
		fmt.Printf("Indexed:    %d\n", status.IndexSize)
		return nil
	},
}

func init() {
	timelineCmd.Flags().IntVar(&timelineDays, "days", 0, "Only decisions from the last N days")
	timelineCmd.Flags().StringVar(&timelineCategory, "category", "", "Only one category")
	timelineCmd.Flags().IntVar(&timelineLimit, "limit", 0, "Maximum entries")
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(statusCmd)
}
