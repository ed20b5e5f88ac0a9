package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DocumentCmd creates the document parent command.
func DocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: "Inspect and delete documents",
	}

	cmd.AddCommand(DocumentGetCmd())
	cmd.AddCommand(DocumentDeleteCmd())

	return cmd
}

// DocumentGetCmd creates the document get command.
func DocumentGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocumentGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runDocumentGet(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents/" + id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var document Document
	if err := json.Unmarshal(resp.Data, &document); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(document, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Document: %s\n", document.ID)
	fmt.Printf("Filename: %s\n", document.Filename)
	fmt.Printf("Type: %s\n", document.SourceType)
	fmt.Printf("Status: %s\n", document.Status)
	fmt.Printf("Chunks: %d\n", document.ChunkCount)
	if document.Error != "" {
		fmt.Printf("Error: %s\n", document.Error)
	}
	fmt.Printf("Created: %s\n", document.CreatedAt)

	return nil
}

// DocumentDeleteCmd creates the document delete command.
func DocumentDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocumentDelete(cmd, args[0])
		},
	}

	return cmd
}

func runDocumentDelete(cmd *cobra.Command, id string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/documents/" + id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Document %s deleted\n", id)
	return nil
}
