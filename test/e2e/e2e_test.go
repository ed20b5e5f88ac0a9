//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notebookData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type documentData struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	SourceType string `json:"source_type"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
}

type ingestData struct {
	DocumentID    string `json:"document_id"`
	ChunkCount    int    `json:"chunk_count"`
	SkippedChunks int    `json:"skipped_chunks"`
	SkippedImages int    `json:"skipped_images"`
}

type queryData struct {
	Answer     string `json:"answer"`
	IsMultihop bool   `json:"is_multihop"`
	Chunks     []struct {
		ChunkID    string  `json:"chunk_id"`
		Content    string  `json:"content"`
		Similarity float64 `json:"similarity"`
	} `json:"chunks"`
	Steps []struct {
		SubQuestion string `json:"sub_question"`
		Answer      string `json:"answer"`
	} `json:"steps"`
}

func (e *E2ETestEnv) createNotebook(name string) notebookData {
	resp, err := e.Post("/notebooks", map[string]string{"name": name}, e.APIKeyToken)
	require.NoError(e.T, err)

	var nb notebookData
	require.NoError(e.T, json.Unmarshal(resp.Data, &nb))
	return nb
}

func TestE2E_IngestAndQueryFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	nb := env.createNotebook("research")
	assert.Equal(t, "research", nb.Name)

	// Ingest a text document
	resp, err := env.Post("/ingest/text", map[string]string{
		"notebook_id": nb.ID,
		"filename":    "go-history.txt",
		"text":        "Go was designed at Google in 2007. It was publicly announced in November 2009.",
	}, env.APIKeyToken)
	require.NoError(t, err)

	var ingested ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &ingested))
	assert.NotEmpty(t, ingested.DocumentID)
	assert.Greater(t, ingested.ChunkCount, 0)
	assert.Zero(t, ingested.SkippedChunks)

	// Document is visible and ready
	resp, err = env.Get("/notebooks/"+nb.ID+"/documents", env.APIKeyToken)
	require.NoError(t, err)

	var docs []documentData
	require.NoError(t, json.Unmarshal(resp.Data, &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "go-history.txt", docs[0].Filename)
	assert.Equal(t, "ready", docs[0].Status)
	assert.Equal(t, ingested.ChunkCount, docs[0].ChunkCount)

	// Query retrieves the ingested chunk and answers through the generator
	resp, err = env.Post("/query", map[string]interface{}{
		"question":    "When was Go designed?",
		"notebook_id": nb.ID,
	}, env.APIKeyToken)
	require.NoError(t, err)

	var result queryData
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, StubAnswer, result.Answer)
	require.NotEmpty(t, result.Chunks)
	assert.Contains(t, result.Chunks[0].Content, "Go was designed")

	// Delete the document; its chunks go with it
	_, err = env.Delete("/documents/"+docs[0].ID, env.APIKeyToken)
	require.NoError(t, err)

	resp, err = env.Post("/query", map[string]interface{}{
		"question":    "When was Go designed?",
		"notebook_id": nb.ID,
	}, env.APIKeyToken)
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Empty(t, result.Chunks)
	assert.NotEqual(t, StubAnswer, result.Answer)
}

func TestE2E_DocumentUpload(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	nb := env.createNotebook("uploads")

	content := []byte("Postgres stores rows in heap files. Indexes speed up lookups.")
	resp, err := env.PostMultipart("/ingest/document", "postgres.txt", content, map[string]string{
		"notebook_id": nb.ID,
	}, env.APIKeyToken)
	require.NoError(t, err)

	var ingested ingestData
	require.NoError(t, json.Unmarshal(resp.Data, &ingested))
	assert.Greater(t, ingested.ChunkCount, 0)

	resp, err = env.Get("/documents/"+ingested.DocumentID, env.APIKeyToken)
	require.NoError(t, err)

	var doc documentData
	require.NoError(t, json.Unmarshal(resp.Data, &doc))
	assert.Equal(t, "postgres.txt", doc.Filename)
	assert.Equal(t, "text", doc.SourceType)

	// Uploaded originals are retained and served back via presigned URL.
	resp, err = env.Get("/documents/"+ingested.DocumentID+"/download", env.APIKeyToken)
	require.NoError(t, err)

	var dl struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &dl))
	assert.Contains(t, dl.URL, "postgres.txt")
}

func TestE2E_MultihopQuery(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	nb := env.createNotebook("multihop")

	_, err := env.Post("/ingest/text", map[string]string{
		"notebook_id": nb.ID,
		"filename":    "facts.txt",
		"text":        "The Eiffel Tower is in Paris. Paris is the capital of France.",
	}, env.APIKeyToken)
	require.NoError(t, err)

	// A comparative question triggers heuristic decomposition with the stub
	// generator, so the result carries step traces.
	resp, err := env.Post("/query", map[string]interface{}{
		"question":    "Compare the Eiffel Tower and the Louvre",
		"notebook_id": nb.ID,
	}, env.APIKeyToken)
	require.NoError(t, err)

	var result queryData
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	if result.IsMultihop {
		assert.NotEmpty(t, result.Steps)
	}
	assert.NotEmpty(t, result.Answer)
}

func TestE2E_ScopeIsolation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	_, otherToken := env.CreateUserWithKey("other@example.com")

	nb := env.createNotebook("private")
	_, err := env.Post("/ingest/text", map[string]string{
		"notebook_id": nb.ID,
		"filename":    "secret.txt",
		"text":        "The launch code is 0000.",
	}, env.APIKeyToken)
	require.NoError(t, err)

	// The other user sees no notebooks and no chunks
	resp, err := env.Get("/notebooks", otherToken)
	require.NoError(t, err)

	var notebooks []notebookData
	require.NoError(t, json.Unmarshal(resp.Data, &notebooks))
	assert.Empty(t, notebooks)

	resp, err = env.Post("/query", map[string]interface{}{
		"question": "What is the launch code?",
	}, otherToken)
	require.NoError(t, err)

	var result queryData
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Empty(t, result.Chunks)

	// Nor can they read the owner's notebook directly
	_, err = env.Get("/notebooks/"+nb.ID, otherToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestE2E_AuthRequired(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	_, err := env.Get("/notebooks", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, err = env.Get("/notebooks", "ctx_"+strings.Repeat("0", 64))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestE2E_APIKeyRevocation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	resp, err := env.Get("/apikeys", env.APIKeyToken)
	require.NoError(t, err)

	var keys []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &keys))
	require.Len(t, keys, 1)

	_, err = env.Delete("/apikeys/"+keys[0].ID, env.APIKeyToken)
	require.NoError(t, err)

	_, err = env.Get("/notebooks", env.APIKeyToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestE2E_NotebookDeleteCascades(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	nb := env.createNotebook("ephemeral")
	_, err := env.Post("/ingest/text", map[string]string{
		"notebook_id": nb.ID,
		"filename":    "notes.txt",
		"text":        "Disposable notes about nothing in particular.",
	}, env.APIKeyToken)
	require.NoError(t, err)

	_, err = env.Delete("/notebooks/"+nb.ID, env.APIKeyToken)
	require.NoError(t, err)

	_, err = env.Get("/notebooks/"+nb.ID, env.APIKeyToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	// Scoped query over the deleted notebook finds nothing
	resp, err := env.Post("/query", map[string]interface{}{
		"question": "What do the notes say?",
	}, env.APIKeyToken)
	require.NoError(t, err)

	var result queryData
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Empty(t, result.Chunks)
}

func TestE2E_ImageIngestRejectedWithoutCaptioner(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	nb := env.createNotebook("images")

	// Minimal PNG header; the server has no vision provider configured
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	_, err := env.PostMultipart("/ingest/image", "photo.png", png, map[string]string{
		"notebook_id": nb.ID,
	}, env.APIKeyToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestE2E_CLIFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI build in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()
	env.BuildBinaries()

	workDir := t.TempDir()

	out, err := env.RunCortex(workDir, "notebook", "create", "cli-notebook")
	require.NoError(t, err, out)
	assert.Contains(t, out, "cli-notebook")

	// Create output ends with the notebook id in parentheses
	start := strings.LastIndex(out, "(")
	end := strings.LastIndex(out, ")")
	require.True(t, start >= 0 && end > start, out)
	nbID := out[start+1 : end]

	out, err = env.RunCortex(workDir, "notebook", "list")
	require.NoError(t, err, out)
	assert.Contains(t, out, "cli-notebook")

	notesPath := filepath.Join(workDir, "notes.txt")
	require.NoError(t, os.WriteFile(notesPath, []byte("The CLI ingested this text."), 0644))

	out, err = env.RunCortex(workDir, "ingest", notesPath, "--notebook", nbID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "chunk")

	out, err = env.RunCortex(workDir, "ask", "What did the CLI ingest?", "--notebook", nbID)
	require.NoError(t, err, out)
	assert.Contains(t, out, StubAnswer)
}

func TestE2E_HealthEndpoint(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.HTTPClient.Get(env.ServerURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
