package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loocode/loo/internal/testutil"
)

// TestChatCompletions verifies the request shape, auth headers, and
// response parsing.
func TestChatCompletions(testingHandle *testing.T) {
	var captured *http.Request
	var capturedBody ChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		captured = request
		testutil.RequireNoError(testingHandle, json.NewDecoder(request.Body).Decode(&capturedBody), "decode request body")
		json.NewEncoder(writer).Encode(ChatResponse{
			ID: "gen-1",
			Choices: []ChatChoice{
				{Message: Message{Role: "assistant", Content: "hello back"}, FinishReason: "stop"},
			},
			Usage: Usage{PromptTokens: 4, CompletionTokens: 3, TotalTokens: 7},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	response, err := client.ChatCompletions(context.Background(), &ChatRequest{
		Model:    "meta-llama/llama-3.1-8b-instruct:free",
		Messages: []Message{{Role: "user", Content: "hello"}},
	})
	testutil.RequireNoError(testingHandle, err, "chat completions")

	testutil.RequireEqual(testingHandle, captured.URL.Path, "/chat/completions", "endpoint path")
	testutil.RequireEqual(testingHandle, captured.Header.Get("Authorization"), "Bearer test-key", "bearer auth")
	testutil.RequireEqual(testingHandle, captured.Header.Get("X-Title"), "Loo", "attribution title")
	testutil.RequireEqual(testingHandle, capturedBody.Model, "meta-llama/llama-3.1-8b-instruct:free", "model forwarded")
	testutil.RequireEqual(testingHandle, response.Choices[0].Message.Content, "hello back", "assistant content")
	testutil.RequireEqual(testingHandle, response.Usage.TotalTokens, 7, "usage parsed")
}

// TestChatCompletionsAPIError verifies non-2xx responses surface as
// structured API errors.
func TestChatCompletionsAPIError(testingHandle *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusUnauthorized)
		writer.Write([]byte(`{"error": "bad key"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "wrong-key", 5*time.Second)
	_, err := client.ChatCompletions(context.Background(), &ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}})
	testutil.RequireError(testingHandle, err, "unauthorized request fails")

	var apiErr *APIError
	testutil.RequireTrue(testingHandle, errors.As(err, &apiErr), "error is an APIError")
	testutil.RequireEqual(testingHandle, apiErr.StatusCode, http.StatusUnauthorized, "status code carried")
	testutil.RequireStringContains(testingHandle, apiErr.Body, "bad key", "body carried")
}

// TestChatCompletionsEmptyChoices verifies an empty choices list is an
// error rather than a nil dereference later.
func TestChatCompletionsEmptyChoices(testingHandle *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		json.NewEncoder(writer).Encode(ChatResponse{ID: "gen-2"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	_, err := client.ChatCompletions(context.Background(), &ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}})
	testutil.RequireError(testingHandle, err, "empty choices rejected")
}

// TestListModels verifies the GET endpoint and pricing parsing.
func TestListModels(testingHandle *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		testutil.RequireEqual(testingHandle, request.Method, http.MethodGet, "models uses GET")
		testutil.RequireEqual(testingHandle, request.URL.Path, "/models", "models path")
		json.NewEncoder(writer).Encode(ModelList{
			Data: []Model{
				{ID: "qwen/qwen-2.5-72b", Name: "Qwen 2.5 72B", ContextLength: 32768,
					Pricing: ModelPricing{Prompt: "0.0000009", Completion: "0.0000009"}},
				{ID: "meta-llama/llama-3.1-8b-instruct:free", Name: "Llama 3.1 8B (free)", ContextLength: 131072},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "test-key", 5*time.Second)
	models, err := client.ListModels(context.Background())
	testutil.RequireNoError(testingHandle, err, "list models")
	testutil.RequireEqual(testingHandle, len(models), 2, "two models")
	testutil.RequireEqual(testingHandle, models[0].ID, "qwen/qwen-2.5-72b", "model id")
	testutil.RequireEqual(testingHandle, models[0].Pricing.Prompt, "0.0000009", "pricing string preserved")
}
