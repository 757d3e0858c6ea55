package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ChatMessage is one prior conversation turn sent with a query.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Source mirrors one citation in an answer.
type Source struct {
	FileName   string `json:"file_name"`
	Question   string `json:"question,omitempty"`
	Context    string `json:"context,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	PageNumber int    `json:"page_number,omitempty"`
}

// Answer mirrors the API's answer response.
type Answer struct {
	ProjectID string   `json:"project_id"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
}

// Chunk mirrors one raw retrieval hit.
type Chunk struct {
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	FileName   string  `json:"file_name"`
	Question   string  `json:"question,omitempty"`
	DocumentID string  `json:"document_id,omitempty"`
	PageNumber int     `json:"page_number,omitempty"`
}

// ChunkList mirrors the API's raw retrieval response.
type ChunkList struct {
	ProjectID string  `json:"project_id"`
	Chunks    []Chunk `json:"chunks"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		projectID string
		chat      bool
		chunks    bool
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against a project's knowledge",
		Long: `Ask a question and get an answer grounded in the project's knowledge,
with source citations.

Examples:
  # One-shot question
  relay ask --project <id> "How do we deploy?"

  # Interactive chat with follow-up questions
  relay ask --project <id> --chat

  # Raw retrieval without answer generation
  relay ask --project <id> --chunks "deployment"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			if chat {
				return runChat(api, projectID)
			}

			if len(args) == 0 {
				return fmt.Errorf("question required (or use --chat)")
			}

			if chunks {
				return runChunks(api, projectID, args[0], limit, outputJSON)
			}
			return runAsk(api, projectID, args[0], nil, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().BoolVar(&chat, "chat", false, "Interactive chat mode")
	cmd.Flags().BoolVar(&chunks, "chunks", false, "Return raw retrieved chunks instead of an answer")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum chunks to retrieve (with --chunks)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runAsk(api *APIClient, projectID, question string, history []ChatMessage, outputJSON bool) error {
	resp, err := api.Post("/query", map[string]interface{}{
		"project_id":   projectID,
		"query":        question,
		"chat_history": history,
	})
	if err != nil {
		return err
	}

	var answer Answer
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(answer)
	}
	printAnswer(answer)
	return nil
}

func runChunks(api *APIClient, projectID, question string, limit int, outputJSON bool) error {
	resp, err := api.Post("/query/chunks", map[string]interface{}{
		"project_id": projectID,
		"query":      question,
		"limit":      limit,
	})
	if err != nil {
		return err
	}

	var list ChunkList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		return printJSON(list)
	}
	if len(list.Chunks) == 0 {
		fmt.Println("No matching knowledge found.")
		return nil
	}
	for _, c := range list.Chunks {
		fmt.Printf("[%.3f] %s", c.Score, c.FileName)
		if c.PageNumber > 0 {
			fmt.Printf(" (page %d)", c.PageNumber)
		}
		fmt.Printf("\n%s\n\n", c.Content)
	}
	return nil
}

func runChat(api *APIClient, projectID string) error {
	fmt.Println("Chat mode. Empty line or 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var history []ChatMessage
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" || question == "quit" || question == "exit" {
			return nil
		}

		resp, err := api.Post("/query", map[string]interface{}{
			"project_id":   projectID,
			"query":        question,
			"chat_history": history,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		var answer Answer
		if err := json.Unmarshal(resp.Data, &answer); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		printAnswer(answer)
		history = append(history,
			ChatMessage{Role: "human", Content: question},
			ChatMessage{Role: "ai", Content: answer.Answer},
		)
	}
}

func printAnswer(answer Answer) {
	fmt.Printf("\n%s\n", answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			fmt.Printf("  - %s", src.FileName)
			if src.PageNumber > 0 {
				fmt.Printf(" (page %d)", src.PageNumber)
			}
			if src.Question != "" {
				fmt.Printf(": %s", src.Question)
			}
			fmt.Println()
		}
	}
}
