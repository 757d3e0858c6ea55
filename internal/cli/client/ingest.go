package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// QAPair is one supplied question/answer pair for static ingestion.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StaticQAResult mirrors the API's static Q&A ingestion response.
type StaticQAResult struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// DocumentUploadResult mirrors the API's document upload response.
type DocumentUploadResult struct {
	DocumentID string   `json:"document_id"`
	FileName   string   `json:"file_name"`
	Chunks     int      `json:"chunks"`
	Warnings   []string `json:"warnings,omitempty"`
}

// QuestionGenResult mirrors the API's question generation response.
type QuestionGenResult struct {
	DocumentID         string   `json:"document_id"`
	SuggestedQuestions []string `json:"suggested_questions"`
	Warnings           []string `json:"warnings,omitempty"`
}

// IngestCmd creates the ingest command group.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest knowledge into a project",
	}

	cmd.AddCommand(ingestQACmd())
	cmd.AddCommand(ingestUploadCmd())
	cmd.AddCommand(ingestQuestionsCmd())

	return cmd
}

func ingestQACmd() *cobra.Command {
	var (
		projectID string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "qa",
		Short: "Ingest Q&A pairs from JSON input (stdin or file)",
		Long: `Ingest a batch of question/answer pairs.

Examples:
  # From stdin
  echo '[{"question":"What DB do we use?","answer":"Postgres"}]' | relay ingest qa --project <id>

  # From a file
  relay ingest qa --project <id> --file pairs.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			input, err := readInput(file)
			if err != nil {
				return err
			}

			var pairs []QAPair
			if err := json.Unmarshal(input, &pairs); err != nil {
				return fmt.Errorf("invalid input: expected a JSON array of {question, answer}: %w", err)
			}

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Post("/transfer/static-qa", map[string]interface{}{
				"project_id": projectID,
				"qa_pairs":   pairs,
			})
			if err != nil {
				return err
			}

			var result StaticQAResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			fmt.Printf("Ingested %d pairs (%d skipped)\n", result.Ingested, result.Skipped)
			printWarnings(result.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Input file (defaults to stdin)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func ingestUploadCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document (pdf, markdown, text, or source code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.UploadDocument("/transfer/documents", projectID, args[0])
			if err != nil {
				return err
			}

			var result DocumentUploadResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			fmt.Printf("Uploaded %s (id: %s, %d chunks indexed)\n", result.FileName, result.DocumentID, result.Chunks)
			printWarnings(result.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func ingestQuestionsCmd() *cobra.Command {
	var (
		projectID string
		perChunk  int
		maxTotal  int
	)

	cmd := &cobra.Command{
		Use:   "questions <document-id>",
		Short: "Generate clarifying questions for an uploaded document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Post("/transfer/documents/"+args[0]+"/questions", map[string]interface{}{
				"project_id":              projectID,
				"num_questions_per_chunk": perChunk,
				"max_total_questions":     maxTotal,
			})
			if err != nil {
				return err
			}

			var result QuestionGenResult
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				return printJSON(result)
			}
			if len(result.SuggestedQuestions) == 0 {
				fmt.Println("No questions generated.")
			}
			for i, q := range result.SuggestedQuestions {
				fmt.Printf("%d. %s\n", i+1, q)
			}
			printWarnings(result.Warnings)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID (required)")
	cmd.Flags().IntVar(&perChunk, "per-chunk", 0, "Questions per document chunk (default 2)")
	cmd.Flags().IntVar(&maxTotal, "max", 0, "Maximum total questions (default 10)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func readInput(file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}

func printWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}
