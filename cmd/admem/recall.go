package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"admem/internal/service"
)

var (
	recallLimit  int
	recallGlobal bool

	patternsStack []string
	patternsType  string
)

var recallCmd = &cobra.Command{
	Use:   "recall [question]",
	Short: "Retrieve decisions relevant to a question",
	Long: `With a question, ranks stored decisions by semantic similarity. Without
one, lists the most recent decisions of the current project.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		query := strings.Join(args, " ")
		result, err := application.svc.Recall(cmd.Context(), service.RecallRequest{
			WorkingDir: workingDir(),
			Query:      query,
			Limit:      recallLimit,
			Global:     recallGlobal,
		})
		if err != nil {
			return err
		}
		fmt.Println(service.RenderRecall(result, query))
		return nil
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns [topic]",
	Short: "Show recurring themes and recommended patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		result, err := application.svc.DiscoverPatterns(cmd.Context(), service.DiscoverRequest{
			WorkingDir:  workingDir(),
			Topic:       strings.Join(args, " "),
			TechStack:   patternsStack,
			ProjectType: patternsType,
		})
		if err != nil {
			return err
		}
		fmt.Println(service.RenderDiscover(result))
		return nil
	},
}

func init() {
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 10, "Maximum results")
	recallCmd.Flags().BoolVar(&recallGlobal, "global", false, "Search public decisions across all projects")
	patternsCmd.Flags().StringSliceVar(&patternsStack, "stack", nil, "Override the detected tech stack for recommendations")
	patternsCmd.Flags().StringVar(&patternsType, "type", "", "Override the detected project type for recommendations")
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(patternsCmd)
}
