package client

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "ctx_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	api, err := NewAPIClientWithConfig(testAPIKey, srv.URL)
	require.NoError(t, err)
	return api
}

func TestAPIClient_Get_Success(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/notebooks", r.URL.Path)
		assert.Equal(t, "Bearer "+testAPIKey, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"id": "nb-1", "name": "research"}]}`))
	})

	resp, err := api.Get("/notebooks")
	require.NoError(t, err)

	var notebooks []Notebook
	require.NoError(t, json.Unmarshal(resp.Data, &notebooks))
	require.Len(t, notebooks, 1)
	assert.Equal(t, "nb-1", notebooks[0].ID)
	assert.Equal(t, "research", notebooks[0].Name)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "my notebook", payload["name"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"id": "nb-2", "name": "my notebook"}}`))
	})

	resp, err := api.Post("/notebooks", map[string]string{"name": "my notebook"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestAPIClient_Delete_Success(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/documents/doc-1", r.URL.Path)

		w.Write([]byte(`{"data": {"id": "doc-1", "status": "deleted"}}`))
	})

	_, err := api.Delete("/documents/doc-1")
	require.NoError(t, err)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "notebook not found"}`))
	})

	resp, err := api.Get("/notebooks/missing")
	assert.Nil(t, resp)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "notebook not found", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "404")
}

func TestAPIClient_NonJSONErrorResponse(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	resp, err := api.Get("/query")
	assert.Nil(t, resp)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestAPIClient_PostFile_MultipartUpload(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		content, _ := io.ReadAll(file)
		assert.Equal(t, "notes.txt", filepath.Base(header.Filename))
		assert.Equal(t, "hello chunks", string(content))
		assert.Equal(t, "nb-1", r.FormValue("notebook_id"))

		w.Write([]byte(`{"data": {"document_id": "doc-9", "chunk_count": 1}}`))
	})

	resp, err := api.PostFile("/ingest/document", "notes.txt", []byte("hello chunks"), map[string]string{
		"notebook_id": "nb-1",
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.Data)
}

func TestAPIClient_PostFile_SkipsEmptyFields(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["notebook_id"]
		assert.False(t, present)

		w.Write([]byte(`{"data": {}}`))
	})

	_, err := api.PostFile("/ingest/document", "notes.txt", []byte("x"), map[string]string{
		"notebook_id": "",
	})
	require.NoError(t, err)
}

func TestNewAPIClientWithCmd_EnvFallback(t *testing.T) {
	t.Setenv(envAPIKey, testAPIKey)
	t.Setenv(envAPIURL, "http://env-host:8080")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, testAPIKey, api.apiKey)
	assert.Equal(t, "http://env-host:8080", api.baseURL)
}

func TestNewAPIClientWithCmd_NoCredentials(t *testing.T) {
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	tmpDir := t.TempDir()
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return filepath.Join(tmpDir, "config.json"), nil
	}
	defer func() { getConfigPathFunc = oldGetConfigPath }()

	api, err := NewAPIClientWithCmd(nil)
	assert.Nil(t, api)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CORTEX_API_KEY")
}

func TestNewAPIClientWithCmd_DefaultURL(t *testing.T) {
	t.Setenv(envAPIKey, testAPIKey)
	t.Setenv(envAPIURL, "")

	tmpDir := t.TempDir()
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return filepath.Join(tmpDir, "config.json"), nil
	}
	defer func() { getConfigPathFunc = oldGetConfigPath }()

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}
