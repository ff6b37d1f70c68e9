//go:build lambda.norpc

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/apresai/shortsmith/internal/apikey"
	"github.com/apresai/shortsmith/internal/observability"
	"github.com/apresai/shortsmith/internal/proxy"
)

func main() {
	log := observability.InitLogger(os.Stdout, slog.LevelInfo, observability.FormatJSON)

	tableName := os.Getenv("DYNAMODB_TABLE")
	runtimeARN := os.Getenv("RUNTIME_ARN")
	if tableName == "" || runtimeARN == "" {
		log.Error("DYNAMODB_TABLE and RUNTIME_ARN environment variables are required")
		os.Exit(1)
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Error("Failed to load AWS config", "error", err)
		os.Exit(1)
	}

	keys := apikey.NewValidator(dynamodb.NewFromConfig(cfg), tableName)
	h := proxy.New(keys, bedrockagentcore.NewFromConfig(cfg), runtimeARN, log)
	lambda.Start(h.Handle)
}
