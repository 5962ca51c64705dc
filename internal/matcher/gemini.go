package matcher

import (
	"context"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"github.com/agentstation/refdata/pkg/errors"
)

// DefaultVertexLocation is used when GOOGLE_CLOUD_LOCATION is unset.
const DefaultVertexLocation = "us-central1"

// credentialTimeout bounds Application Default Credentials detection,
// which can stall probing the metadata server off GCP.
const credentialTimeout = 2 * time.Second

// geminiGenerator calls Gemini through the GenAI SDK. With an API key it
// uses the Gemini API; without one it uses Vertex AI in project with
// Application Default Credentials.
type geminiGenerator struct {
	apiKey   string
	baseURL  string
	project  string
	location string
}

func isGeminiModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gemini")
}

// vertexProject is the Google Cloud project Vertex AI requests are billed to.
func vertexProject() string {
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

func newGeminiGenerator(apiKey, baseURL string) *geminiGenerator {
	location := os.Getenv("GOOGLE_CLOUD_LOCATION")
	if location == "" {
		location = DefaultVertexLocation
	}
	return &geminiGenerator{
		apiKey:   apiKey,
		baseURL:  baseURL,
		project:  vertexProject(),
		location: location,
	}
}

func (g *geminiGenerator) clientConfig(ctx context.Context) (*genai.ClientConfig, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI, APIKey: g.apiKey}
	if g.apiKey == "" {
		if g.project == "" {
			return nil, errors.NewConfigError("gemini", "set llm_api_key or GOOGLE_CLOUD_PROJECT for Vertex AI", nil)
		}
		creds, err := detectCredentials(ctx)
		if err != nil {
			return nil, err
		}
		cfg = &genai.ClientConfig{
			Backend:     genai.BackendVertexAI,
			Project:     g.project,
			Location:    g.location,
			Credentials: creds,
		}
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	return cfg, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, model, system, prompt string) (string, error) {
	cfg, err := g.clientConfig(ctx)
	if err != nil {
		return "", err
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return "", errors.NewConfigError("gemini", "failed to create client", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return "", errors.WrapAPI("gemini", 0, err)
	}
	return resp.Text(), nil
}

// detectCredentials finds Application Default Credentials. DetectDefault
// takes no context, so it runs in a goroutine raced against ctx.
func detectCredentials(ctx context.Context) (*auth.Credentials, error) {
	type result struct {
		creds *auth.Credentials
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes: []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		ch <- result{creds, err}
	}()

	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, errors.NewConfigError("gemini", "no Application Default Credentials found", res.err)
		}
		return res.creds, nil
	case <-ctx.Done():
		return nil, errors.NewConfigError("gemini", "credential detection timed out", ctx.Err())
	}
}
