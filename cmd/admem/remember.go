package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"admem/internal/service"
)

var (
	rememberReasoning    string
	rememberType         string
	rememberConfidence   float64
	rememberAlternatives []string
	rememberFiles        []string
	rememberPublic       bool
)

var rememberCmd = &cobra.Command{
	Use:   "remember <decision text>",
	Short: "Record a decision for the current project",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(context.Background())
		if err != nil {
			return err
		}
		defer application.close()

		result, err := application.svc.Remember(cmd.Context(), service.RememberRequest{
			WorkingDir:             workingDir(),
			Decision:               strings.Join(args, " "),
			Reasoning:              rememberReasoning,
			Type:                   rememberType,
			AlternativesConsidered: rememberAlternatives,
			FilesAffected:          rememberFiles,
			Confidence:             rememberConfidence,
			Public:                 rememberPublic,
		})
		if err != nil {
			return err
		}
		fmt.Println(service.RenderRemember(result))
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringVarP(&rememberReasoning, "reasoning", "r", "", "Why this was decided (required)")
	rememberCmd.Flags().StringVarP(&rememberType, "type", "t", "", "tech_stack, architecture, pattern, or tool_choice (required)")
	rememberCmd.Flags().Float64VarP(&rememberConfidence, "confidence", "c", 0.8, "Confidence from 0 to 1")
	rememberCmd.Flags().StringSliceVar(&rememberAlternatives, "alternatives", nil, "Rejected options")
	rememberCmd.Flags().StringSliceVar(&rememberFiles, "files", nil, "Files this decision touches")
	rememberCmd.Flags().BoolVar(&rememberPublic, "public", false, "Share across projects")
	_ = rememberCmd.MarkFlagRequired("reasoning")
	_ = rememberCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(rememberCmd)
}
