// Package apikey issues and validates the bearer keys that guard the MCP
// server and its Lambda proxy. Only the SHA-256 hash of a key is stored.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Keys look like "sk_" followed by 64 hex characters. The 8 characters after
// the prefix identify the DynamoDB record.
const (
	keyPrefix = "sk_"
	idLen     = 8
)

var (
	ErrMissing  = errors.New("missing API key")
	ErrFormat   = errors.New("invalid API key format")
	ErrNotFound = errors.New("API key not found")
	ErrMismatch = errors.New("invalid API key")
	// ErrInactive wraps revoked keys; callers may answer 403 instead of 401.
	ErrInactive = errors.New("API key is not active")
)

// Record is the DynamoDB item for one key.
type Record struct {
	PK         string `dynamodbav:"PK"` // APIKEY#{id}
	SK         string `dynamodbav:"SK"` // METADATA
	UserID     string `dynamodbav:"userId"`
	KeyHash    string `dynamodbav:"keyHash"`
	Name       string `dynamodbav:"name,omitempty"`
	Status     string `dynamodbav:"status"`
	CreatedAt  string `dynamodbav:"createdAt"`
	LastUsedAt string `dynamodbav:"lastUsedAt,omitempty"`
}

// Identity is the caller behind a valid key.
type Identity struct {
	UserID string
	KeyID  string
}

// TableAPI is the part of the DynamoDB client the validator needs.
type TableAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Validator checks bearer keys against the table.
type Validator struct {
	client TableAPI
	table  string
	now    func() time.Time
}

func NewValidator(client TableAPI, table string) *Validator {
	return &Validator{client: client, table: table, now: time.Now}
}

// Hash returns the hex SHA-256 of key.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Parse extracts the key from an Authorization header value (with or
// without "Bearer ") and returns it with its record id.
func Parse(header string) (key, id string, err error) {
	key = strings.TrimSpace(header)
	if k, ok := strings.CutPrefix(key, "Bearer "); ok {
		key = strings.TrimSpace(k)
	}
	if key == "" {
		return "", "", ErrMissing
	}
	if !strings.HasPrefix(key, keyPrefix) || len(key) < len(keyPrefix)+idLen {
		return "", "", ErrFormat
	}
	return key, key[len(keyPrefix) : len(keyPrefix)+idLen], nil
}

// Validate resolves the caller for an Authorization header value.
func (v *Validator) Validate(ctx context.Context, header string) (*Identity, error) {
	key, id, err := Parse(header)
	if err != nil {
		return nil, err
	}

	out, err := v.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &v.table,
		Key:       recordKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("lookup API key: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal API key: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(rec.KeyHash), []byte(Hash(key))) != 1 {
		return nil, ErrMismatch
	}
	if rec.Status != "active" {
		return nil, fmt.Errorf("%w (%s)", ErrInactive, rec.Status)
	}
	return &Identity{UserID: rec.UserID, KeyID: id}, nil
}

// Touch records the last use of a key, at most once a minute.
func (v *Validator) Touch(ctx context.Context, id string) error {
	now := v.now().UTC()
	_, err := v.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &v.table,
		Key:                 recordKey(id),
		UpdateExpression:    aws.String("SET lastUsedAt = :now"),
		ConditionExpression: aws.String("attribute_not_exists(lastUsedAt) OR lastUsedAt < :threshold"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
			":threshold": &types.AttributeValueMemberS{Value: now.Add(-time.Minute).Format(time.RFC3339)},
		},
	})
	var cond *types.ConditionalCheckFailedException
	if errors.As(err, &cond) {
		return nil
	}
	return err
}

// Create issues a new key for userID and stores its hash. The plaintext is
// returned once and never stored.
func (v *Validator) Create(ctx context.Context, userID, name string) (plaintext, id string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate random bytes: %w", err)
	}
	plaintext = keyPrefix + hex.EncodeToString(raw)
	id = plaintext[len(keyPrefix) : len(keyPrefix)+idLen]

	rec := Record{
		PK:        "APIKEY#" + id,
		SK:        "METADATA",
		UserID:    userID,
		KeyHash:   Hash(plaintext),
		Name:      name,
		Status:    "active",
		CreatedAt: v.now().UTC().Format(time.RFC3339),
	}
	av, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return "", "", fmt.Errorf("marshal API key: %w", err)
	}
	_, err = v.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &v.table,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return "", "", fmt.Errorf("store API key: %w", err)
	}
	return plaintext, id, nil
}

func recordKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "APIKEY#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}
