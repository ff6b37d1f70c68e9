package genai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const vertexDefaultRegion = "us-central1"

type vertexAuth struct {
	project string
	region  string
	tokens  oauth2.TokenSource
}

func (a vertexAuth) endpoint(model string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		a.region, a.project, a.region, model)
}

func (a vertexAuth) authorize(_ context.Context, req *http.Request) error {
	token, err := a.tokens.Token()
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return nil
}

// NewVertex returns a client for Gemini models on Vertex AI, authenticated with
// Application Default Credentials. Project and region fall back to GCP_PROJECT
// and GCP_REGION.
func NewVertex(ctx context.Context, project, region string) (*Gemini, error) {
	if project == "" {
		project = os.Getenv("GCP_PROJECT")
	}
	if project == "" {
		return nil, fmt.Errorf("GCP_PROJECT environment variable is required for the vertex backend")
	}
	if region == "" {
		region = os.Getenv("GCP_REGION")
	}
	if region == "" {
		region = vertexDefaultRegion
	}

	ts, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("get default token source: %w (hint: run 'gcloud auth application-default login' or set GOOGLE_APPLICATION_CREDENTIALS)", err)
	}

	return &Gemini{
		name: "vertex",
		auth: vertexAuth{project: project, region: region, tokens: oauth2.ReuseTokenSource(nil, ts)},
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 100 * time.Second,
				IdleConnTimeout:       30 * time.Second,
			},
		},
	}, nil
}
