package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AskRequest represents the query API request.
type AskRequest struct {
	Question   string `json:"question"`
	NotebookID string `json:"notebook_id,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// AskChunk represents one retrieved source chunk.
type AskChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id,omitempty"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	SourceType string  `json:"source_type,omitempty"`
	Page       string  `json:"page,omitempty"`
}

// AskStep represents one multi-hop reasoning step.
type AskStep struct {
	Step             int    `json:"step"`
	SubQuestion      string `json:"sub_question"`
	Answer           string `json:"answer"`
	ChunksFound      int    `json:"chunks_found"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// AskResponse represents the query API response.
type AskResponse struct {
	Answer              string     `json:"answer"`
	Chunks              []AskChunk `json:"chunks"`
	IsMultihop          bool       `json:"is_multihop"`
	DecompositionMethod string     `json:"decomposition_method,omitempty"`
	Steps               []AskStep  `json:"steps,omitempty"`
	ProcessingTimeMs    int64      `json:"processing_time_ms"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		notebook string
		document string
		topK     int
		sources  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about your documents",
		Long:  "Answers a question using retrieval over your ingested documents. Compound questions are broken into steps automatically.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, args[0], notebook, document, topK, sources, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&notebook, "notebook", "b", "", "Restrict retrieval to a notebook")
	cmd.Flags().StringVarP(&document, "document", "d", "", "Restrict retrieval to a document")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve per step")
	cmd.Flags().BoolVarP(&sources, "sources", "s", false, "Show source chunks")

	return cmd
}

func runAsk(cmd *cobra.Command, question, notebook, document string, topK int, sources, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if notebook == "" {
		notebook = DefaultNotebook()
	}

	req := AskRequest{
		Question:   question,
		NotebookID: notebook,
		DocumentID: document,
		TopK:       topK,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(askResp.Answer)

	if askResp.IsMultihop && len(askResp.Steps) > 0 {
		fmt.Printf("\nAnswered in %d steps (%s decomposition):\n", len(askResp.Steps), askResp.DecompositionMethod)
		for _, step := range askResp.Steps {
			fmt.Printf("  %d. %s (%d chunks, %dms)\n", step.Step, step.SubQuestion, step.ChunksFound, step.ProcessingTimeMs)
		}
	}

	if sources && len(askResp.Chunks) > 0 {
		fmt.Printf("\nSources:\n")
		for i, chunk := range askResp.Chunks {
			label := chunk.SourceType
			if chunk.Page != "" {
				label += " p." + chunk.Page
			}
			preview := chunk.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}
			preview = strings.ReplaceAll(preview, "\n", " ")
			fmt.Printf("  %d. [%.2f] (%s) %s\n", i+1, chunk.Similarity, label, preview)
		}
	}

	return nil
}
