package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
)

func responsesBody(text string) string {
	payload := map[string]any{
		"output": []any{
			map[string]any{"type": "reasoning"},
			map[string]any{
				"type": "message",
				"content": []any{
					map[string]any{"type": "output_text", "text": text},
				},
			},
		},
	}
	out, _ := json.Marshal(payload)
	return string(out)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:  "sk-test",
		Model:   "gpt-5",
		BaseURL: srv.URL,
	})
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "assistants", r.FormValue("purpose"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "abc123.pdf", header.Filename)
		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF data"), content)

		fmt.Fprint(w, `{"id":"file-xyz","object":"file"}`)
	})

	id, err := client.Upload(context.Background(), "abc123.pdf", []byte("%PDF data"))
	require.NoError(t, err)
	assert.Equal(t, "file-xyz", id)
}

func TestUploadStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		category  core.ErrorCategory
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, core.ErrCatRateLimit, true},
		{"unauthorized", http.StatusUnauthorized, core.ErrCatAuth, false},
		{"server error", http.StatusBadGateway, core.ErrCatNetwork, true},
		{"bad request", http.StatusBadRequest, core.ErrCatAnalysis, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope"}}`)
			})

			_, err := client.Upload(context.Background(), "doc.pdf", []byte("x"))
			require.Error(t, err)
			assert.Equal(t, tt.category, core.GetCategory(err))
			assert.Equal(t, tt.retryable, core.IsRetryable(err))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestAnalyzeScore(t *testing.T) {
	var gotReq responsesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, responsesBody(`{"instruments":[{"name":"Trumpet","voice":"1","start_page":3,"end_page":7}]}`))
	})

	analysis, err := client.AnalyzeScore(context.Background(), core.FileRef{FileID: "file-xyz"})
	require.NoError(t, err)

	require.Len(t, analysis.Parts, 1)
	assert.Equal(t, "Trumpet", analysis.Parts[0].Name)
	assert.Equal(t, "1", analysis.Parts[0].Voice)
	assert.Equal(t, 3, analysis.Parts[0].StartPage)
	assert.Equal(t, 7, analysis.Parts[0].EndPage)

	assert.Equal(t, "gpt-5", gotReq.Model)
	require.Len(t, gotReq.Input, 1)
	require.Len(t, gotReq.Input[0].Content, 2)
	assert.Equal(t, "input_file", gotReq.Input[0].Content[0].Type)
	assert.Equal(t, "file-xyz", gotReq.Input[0].Content[0].FileID)
	assert.Equal(t, "input_text", gotReq.Input[0].Content[1].Type)
	require.NotNil(t, gotReq.Reasoning)
	assert.Equal(t, "high", gotReq.Reasoning.Effort)
}

func TestAnalyzeScoreByURL(t *testing.T) {
	var gotReq responsesRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		fmt.Fprint(w, responsesBody(`{"instruments":[]}`))
	})

	_, err := client.AnalyzeScore(context.Background(), core.FileRef{URL: "https://example.com/score.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/score.pdf", gotReq.Input[0].Content[0].FileURL)
	assert.Empty(t, gotReq.Input[0].Content[0].FileID)
}

func TestAnalyzeScoreFencedOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\n{\"instruments\":[{\"name\":\"Oboe\",\"start_page\":1,\"end_page\":2}]}\n```"
		fmt.Fprint(w, responsesBody(fenced))
	})

	analysis, err := client.AnalyzeScore(context.Background(), core.FileRef{FileID: "file-1"})
	require.NoError(t, err)
	require.Len(t, analysis.Parts, 1)
	assert.Equal(t, "Oboe", analysis.Parts[0].Name)
}

func TestAnalyzeScoreNullVoice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responsesBody(`{"instruments":[{"name":"Timpani","voice":null,"start_page":9,"end_page":9}]}`))
	})

	analysis, err := client.AnalyzeScore(context.Background(), core.FileRef{FileID: "file-1"})
	require.NoError(t, err)
	require.Len(t, analysis.Parts, 1)
	assert.Empty(t, analysis.Parts[0].Voice)
}

func TestAnalyzeScoreGarbageOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responsesBody("I could not find any instruments, sorry!"))
	})

	_, err := client.AnalyzeScore(context.Background(), core.FileRef{FileID: "file-1"})
	require.Error(t, err)
	assert.Equal(t, core.ErrCatParse, core.GetCategory(err))
	assert.True(t, core.IsRetryable(err), "a fresh replicate call may return valid JSON")
}

func TestAnalyzeScoreEmptyOutput(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output":[]}`)
	})

	_, err := client.AnalyzeScore(context.Background(), core.FileRef{FileID: "file-1"})
	require.Error(t, err)
	assert.Equal(t, core.ErrCatParse, core.GetCategory(err))
}

func TestIdentifyPart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responsesBody(`{"name":"Clarinet in Bb","voice":"2"}`))
	})

	identity, err := client.IdentifyPart(context.Background(), core.FileRef{FileID: "file-1"})
	require.NoError(t, err)
	assert.Equal(t, "Clarinet in Bb", identity.Name)
	assert.Equal(t, "2", identity.Voice)
	assert.Zero(t, identity.StartPage, "page bounds are the caller's business")
}

func TestStripJSONFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced plain", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripJSONFence(tt.in))
		})
	}
}
