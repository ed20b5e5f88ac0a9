package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Notebook represents a notebook in API responses.
type Notebook struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

// Document represents a document in API responses.
type Document struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SourceType string `json:"source_type"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// NotebookCmd creates the notebook parent command.
func NotebookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notebook",
		Short: "Manage notebooks",
		Long:  "Create, list, inspect, and delete notebooks",
	}

	cmd.AddCommand(NotebookCreateCmd())
	cmd.AddCommand(NotebookListCmd())
	cmd.AddCommand(NotebookDocsCmd())
	cmd.AddCommand(NotebookDeleteCmd())
	cmd.AddCommand(NotebookUseCmd())

	return cmd
}

// NotebookCreateCmd creates the notebook create command.
func NotebookCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runNotebookCreate(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runNotebookCreate(cmd *cobra.Command, name string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/notebooks", map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("failed to create notebook: %w", err)
	}

	var notebook Notebook
	if err := json.Unmarshal(resp.Data, &notebook); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(notebook, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Notebook created: %s (%s)\n", notebook.Name, notebook.ID)
	}

	return nil
}

// NotebookListCmd creates the notebook list command.
func NotebookListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notebooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runNotebookList(cmd, outputJSON)
		},
	}

	return cmd
}

func runNotebookList(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/notebooks")
	if err != nil {
		return fmt.Errorf("failed to list notebooks: %w", err)
	}

	var notebooks []Notebook
	if err := json.Unmarshal(resp.Data, &notebooks); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(notebooks, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(notebooks) == 0 {
		fmt.Println("No notebooks found")
		return nil
	}

	defaultID := DefaultNotebook()
	fmt.Println("Notebooks:")
	for _, n := range notebooks {
		marker := " "
		if n.ID == defaultID {
			marker = "*"
		}
		fmt.Printf("%s %s: %s\n", marker, n.ID, n.Name)
	}

	return nil
}

// NotebookDocsCmd creates the notebook docs command.
func NotebookDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs <id>",
		Short: "List documents in a notebook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runNotebookDocs(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runNotebookDocs(cmd *cobra.Command, id string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/notebooks/" + id + "/documents")
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var documents []Document
	if err := json.Unmarshal(resp.Data, &documents); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(documents, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(documents) == 0 {
		fmt.Println("No documents found")
		return nil
	}

	fmt.Println("Documents:")
	for _, d := range documents {
		fmt.Printf("  %s: %s (%s, %s, %d chunks)\n", d.ID, d.Filename, d.SourceType, d.Status, d.ChunkCount)
		if d.Error != "" {
			fmt.Printf("      error: %s\n", d.Error)
		}
	}

	return nil
}

// NotebookDeleteCmd creates the notebook delete command.
func NotebookDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a notebook and all its documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotebookDelete(cmd, args[0])
		},
	}

	return cmd
}

func runNotebookDelete(cmd *cobra.Command, id string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if _, err := api.Delete("/notebooks/" + id); err != nil {
		return fmt.Errorf("failed to delete notebook: %w", err)
	}

	fmt.Printf("Notebook %s deleted\n", id)
	return nil
}

// NotebookUseCmd creates the notebook use command.
func NotebookUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <id>",
		Short: "Set the default notebook for ask and ingest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNotebookUse(args[0])
		},
	}

	return cmd
}

func runNotebookUse(id string) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		return fmt.Errorf("not logged in (run 'cortex auth login' first)")
	}

	config.Notebook = id
	if err := SaveGlobalConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Default notebook set to %s\n", id)
	return nil
}
