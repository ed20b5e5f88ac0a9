package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// IngestResult represents the ingestion API response.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	ChunkCount    int    `json:"chunk_count"`
	SkippedChunks int    `json:"skipped_chunks"`
	SkippedImages int    `json:"skipped_images"`
}

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var (
		notebook string
		text     string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest a document",
		Long:  "Uploads a file (text, PDF, or image) for chunking and embedding. Use --text to ingest a literal string instead of a file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runIngest(cmd, path, notebook, text, name, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&notebook, "notebook", "b", "", "Notebook to ingest into")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Ingest this text instead of a file")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Filename to record (defaults to the file's basename)")

	return cmd
}

func runIngest(cmd *cobra.Command, path, notebook, text, name string, outputJSON bool) error {
	if path == "" && text == "" {
		return fmt.Errorf("either a file argument or --text is required")
	}
	if path != "" && text != "" {
		return fmt.Errorf("a file argument and --text are mutually exclusive")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if notebook == "" {
		notebook = DefaultNotebook()
	}

	var resp *APIResponse
	if text != "" {
		if name == "" {
			name = "untitled.txt"
		}
		resp, err = api.Post("/ingest/text", map[string]string{
			"notebook_id": notebook,
			"filename":    name,
			"text":        text,
		})
	} else {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read file: %w", readErr)
		}
		if name == "" {
			name = filepath.Base(path)
		}
		resp, err = api.PostFile("/ingest/document", name, content, map[string]string{
			"notebook_id": notebook,
		})
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	var result IngestResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse ingestion response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested as document %s (%d chunks)\n", result.DocumentID, result.ChunkCount)
	if result.SkippedChunks > 0 {
		fmt.Printf("  %d chunks skipped (embedding failed)\n", result.SkippedChunks)
	}
	if result.SkippedImages > 0 {
		fmt.Printf("  %d images skipped (analysis failed or rejected)\n", result.SkippedImages)
	}

	return nil
}
