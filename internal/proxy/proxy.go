// Package proxy is the Lambda Function URL front door for the MCP server. It
// authenticates bearer keys, stamps the caller onto tools/call arguments and
// forwards the JSON-RPC body to the Bedrock AgentCore runtime.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"

	"github.com/apresai/shortsmith/internal/apikey"
)

// JSON-RPC error codes.
const (
	codeInvalidRequest = -32600
	codeInternal       = -32603
	codeUnauthorized   = -32001
)

// KeyValidator checks bearer keys. *apikey.Validator implements it.
type KeyValidator interface {
	Validate(ctx context.Context, header string) (*apikey.Identity, error)
	Touch(ctx context.Context, id string) error
}

// RuntimeInvoker is the part of the AgentCore client the proxy needs.
type RuntimeInvoker interface {
	InvokeAgentRuntime(ctx context.Context, in *bedrockagentcore.InvokeAgentRuntimeInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeAgentRuntimeOutput, error)
}

// Handler serves Lambda Function URL requests.
type Handler struct {
	Keys       KeyValidator
	Runtime    RuntimeInvoker
	RuntimeARN string
	Log        *slog.Logger

	// touch runs the lastUsedAt update; tests make it synchronous.
	touch func(id string)
}

// New returns a Handler that forwards to the runtime identified by runtimeARN.
func New(keys KeyValidator, runtime RuntimeInvoker, runtimeARN string, logger *slog.Logger) *Handler {
	h := &Handler{Keys: keys, Runtime: runtime, RuntimeARN: runtimeARN, Log: logger}
	h.touch = func(id string) { go h.touchKey(id) }
	return h
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	switch req.RequestContext.HTTP.Method {
	case http.MethodOptions:
		return events.LambdaFunctionURLResponse{StatusCode: http.StatusNoContent}, nil
	case http.MethodPost:
	default:
		return jsonRPCError(http.StatusMethodNotAllowed, nil, codeInvalidRequest, "Method not allowed"), nil
	}

	ident, err := h.Keys.Validate(ctx, getHeader(req.Headers, "authorization"))
	if err != nil {
		h.Log.WarnContext(ctx, "Auth failed", "error", err)
		switch {
		case errors.Is(err, apikey.ErrMissing):
			return jsonRPCError(http.StatusUnauthorized, nil, codeUnauthorized, "Missing Authorization header"), nil
		case errors.Is(err, apikey.ErrFormat):
			return jsonRPCError(http.StatusUnauthorized, nil, codeUnauthorized, "Invalid Authorization format, expected: Bearer <api-key>"), nil
		case errors.Is(err, apikey.ErrInactive):
			return jsonRPCError(http.StatusForbidden, nil, codeUnauthorized, err.Error()), nil
		default:
			return jsonRPCError(http.StatusUnauthorized, nil, codeUnauthorized, "Invalid API key"), nil
		}
	}
	h.touch(ident.KeyID)

	h.Log.InfoContext(ctx, "Authenticated", "user_id", ident.UserID, "key_id", ident.KeyID)

	body, rpcID := InjectUserContext([]byte(req.Body), ident.UserID, ident.KeyID)

	input := &bedrockagentcore.InvokeAgentRuntimeInput{
		AgentRuntimeArn: aws.String(h.RuntimeARN),
		Payload:         body,
		ContentType:     aws.String("application/json"),
		Accept:          aws.String("application/json, text/event-stream"),
	}
	if sid := getHeader(req.Headers, "mcp-session-id"); sid != "" {
		input.McpSessionId = aws.String(sid)
	}

	out, err := h.Runtime.InvokeAgentRuntime(ctx, input)
	if err != nil {
		h.Log.ErrorContext(ctx, "AgentCore invocation failed", "error", err)
		return jsonRPCError(http.StatusBadGateway, rpcID, codeInternal, "Upstream server error"), nil
	}
	defer out.Response.Close()

	respBody, err := io.ReadAll(out.Response)
	if err != nil {
		h.Log.ErrorContext(ctx, "Failed to read AgentCore response", "error", err)
		return jsonRPCError(http.StatusBadGateway, rpcID, codeInternal, "Failed to read upstream response"), nil
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if out.ContentType != nil && *out.ContentType != "" {
		headers["Content-Type"] = *out.ContentType
	}
	if out.McpSessionId != nil && *out.McpSessionId != "" {
		headers["Mcp-Session-Id"] = *out.McpSessionId
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    headers,
		Body:       string(respBody),
	}, nil
}

func (h *Handler) touchKey(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Keys.Touch(ctx, id); err != nil {
		h.Log.Warn("Failed to update lastUsedAt", "key_id", id, "error", err)
	}
}

// InjectUserContext adds _user_id and _key_id to the arguments of a
// tools/call request. Other methods and unparseable bodies pass through
// unchanged. It also returns the JSON-RPC id for error replies.
func InjectUserContext(body []byte, userID, keyID string) ([]byte, json.RawMessage) {
	var rpc map[string]json.RawMessage
	if err := json.Unmarshal(body, &rpc); err != nil {
		return body, nil
	}
	id := rpc["id"]

	var method string
	if err := json.Unmarshal(rpc["method"], &method); err != nil || method != "tools/call" {
		return body, id
	}

	var params map[string]json.RawMessage
	if err := json.Unmarshal(rpc["params"], &params); err != nil {
		return body, id
	}
	args := map[string]any{}
	if raw, ok := params["arguments"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return body, id
		}
	}
	args["_user_id"] = userID
	args["_key_id"] = keyID

	var err error
	if params["arguments"], err = json.Marshal(args); err != nil {
		return body, id
	}
	if rpc["params"], err = json.Marshal(params); err != nil {
		return body, id
	}
	out, err := json.Marshal(rpc)
	if err != nil {
		return body, id
	}
	return out, id
}

// getHeader does a case-insensitive header lookup.
// Lambda Function URL headers are already lowercased, but we handle both cases.
func getHeader(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// jsonRPCError builds a JSON-RPC error response with the given HTTP status code.
func jsonRPCError(httpStatus int, id json.RawMessage, code int, message string) events.LambdaFunctionURLResponse {
	if id == nil {
		id = json.RawMessage("null")
	}
	body, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": code, "message": message},
	})
	return events.LambdaFunctionURLResponse{
		StatusCode: httpStatus,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
