package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// InterviewState mirrors the API's interview step response.
type InterviewState struct {
	SessionID  string `json:"session_id"`
	ProjectID  string `json:"project_id"`
	Question   string `json:"question,omitempty"`
	EntryID    string `json:"question_entry_id,omitempty"`
	IsComplete bool   `json:"is_complete"`
	Message    string `json:"message,omitempty"`
}

// DocumentQuestion mirrors the API's document Q&A step response.
type DocumentQuestion struct {
	EntryID     string   `json:"entry_id,omitempty"`
	Question    string   `json:"question,omitempty"`
	Remaining   int      `json:"remaining"`
	NoQuestions bool     `json:"no_questions"`
	Warnings    []string `json:"warnings,omitempty"`
}

// InterviewCmd creates the interview command group.
func InterviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run interactive knowledge interviews",
	}

	cmd.AddCommand(interviewProjectCmd())
	cmd.AddCommand(interviewDocumentCmd())

	return cmd
}

func interviewProjectCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Interview yourself about a project",
		Long: `Start an interactive project interview. The server asks questions,
you type answers; an empty line skips to quitting. Every answer is stored
and indexed immediately, so quitting mid-interview loses nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Post("/transfer/interview", map[string]string{"project_id": projectID})
			if err != nil {
				return err
			}

			var state InterviewState
			if err := json.Unmarshal(resp.Data, &state); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

			for !state.IsComplete {
				fmt.Printf("\nQ: %s\n", state.Question)
				fmt.Print("A: ")

				if !scanner.Scan() {
					fmt.Println("\nInterview paused. Run the command again to continue.")
					return scanner.Err()
				}
				answer := strings.TrimSpace(scanner.Text())
				if answer == "" || answer == "quit" || answer == "exit" {
					fmt.Println("Interview paused. Run the command again to continue.")
					return nil
				}

				resp, err := api.Post("/transfer/interview/respond", map[string]string{
					"session_id": state.SessionID,
					"project_id": projectID,
					"answer":     answer,
				})
				if err != nil {
					return err
				}
				if err := json.Unmarshal(resp.Data, &state); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
			}

			if state.Message != "" {
				fmt.Printf("\n%s\n", state.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func interviewDocumentCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "document <document-id>",
		Short: "Answer generated questions about an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID := args[0]

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/transfer/documents/" + documentID + "/next-question?project_id=" + projectID)
			if err != nil {
				return err
			}

			var question DocumentQuestion
			if err := json.Unmarshal(resp.Data, &question); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

			for !question.NoQuestions {
				fmt.Printf("\nQ: %s (%d remaining)\n", question.Question, question.Remaining)
				fmt.Print("A: ")

				if !scanner.Scan() {
					fmt.Println("\nStopped. Remaining questions stay pending.")
					return scanner.Err()
				}
				answer := strings.TrimSpace(scanner.Text())
				if answer == "" || answer == "quit" || answer == "exit" {
					fmt.Println("Stopped. Remaining questions stay pending.")
					return nil
				}

				resp, err := api.Post("/transfer/documents/"+documentID+"/answer", map[string]string{
					"project_id": projectID,
					"entry_id":   question.EntryID,
					"answer":     answer,
				})
				if err != nil {
					return err
				}
				if err := json.Unmarshal(resp.Data, &question); err != nil {
					return fmt.Errorf("failed to parse response: %w", err)
				}
				printWarnings(question.Warnings)
			}

			fmt.Println("\nAll questions for this document are answered.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
