package mcpserver

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"

	"github.com/apresai/shortsmith/internal/apperr"
)

// JobStatus represents the state of a plan generation job.
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusGenerating JobStatus = "generating"
	JobStatusPublishing JobStatus = "publishing"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusUploading  JobStatus = "uploading"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further updates will follow.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// JobItem is the DynamoDB record for a job.
type JobItem struct {
	PK                 string   `dynamodbav:"PK"`
	SK                 string   `dynamodbav:"SK"`
	GSI1PK             string   `dynamodbav:"GSI1PK"`
	GSI1SK             string   `dynamodbav:"GSI1SK"`
	JobID              string   `dynamodbav:"jobId"`
	Owner              string   `dynamodbav:"owner"`
	UserID             string   `dynamodbav:"userId,omitempty"`
	Platform           string   `dynamodbav:"platform"`
	Topic              string   `dynamodbav:"topic"`
	Backend            string   `dynamodbav:"backend,omitempty"`
	RequestedDuration  int      `dynamodbav:"requestedDuration"`
	NormalizedDuration int      `dynamodbav:"normalizedDuration,omitempty"`
	Segments           int      `dynamodbav:"segments,omitempty"`
	Status             string   `dynamodbav:"status"`
	ProgressPercent    float64  `dynamodbav:"progressPercent,omitempty"`
	StageMessage       string   `dynamodbav:"stageMessage,omitempty"`
	ErrorKind          string   `dynamodbav:"errorKind,omitempty"`
	ErrorMessage       string   `dynamodbav:"errorMessage,omitempty"`
	Title              string   `dynamodbav:"title,omitempty"`
	ResultKey          string   `dynamodbav:"resultKey,omitempty"`
	ResultURL          string   `dynamodbav:"resultUrl,omitempty"`
	AssetURLs          []string `dynamodbav:"assetUrls,omitempty"`
	CreatedAt          string   `dynamodbav:"createdAt"`
	UpdatedAt          string   `dynamodbav:"updatedAt,omitempty"`
}

// JobOutcome is what a finished job records.
type JobOutcome struct {
	Title              string
	ResultKey          string
	ResultURL          string
	AssetURLs          []string
	NormalizedDuration int
	Segments           int
}

// TableAPI is the part of the DynamoDB client the store needs.
type TableAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store handles DynamoDB operations for jobs.
type Store struct {
	client    TableAPI
	tableName string
	now       func() time.Time
}

// NewStore creates a DynamoDB store.
func NewStore(client TableAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// NewJobID generates a ULID for a new job.
func NewJobID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

func jobKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "JOB#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// CreateJob inserts job with status=submitted. Keys and timestamps are filled in.
func (s *Store) CreateJob(ctx context.Context, job JobItem) error {
	now := s.now().UTC().Format(time.RFC3339)
	job.PK = "JOB#" + job.JobID
	job.SK = "METADATA"
	job.GSI1PK = "JOBS"
	job.GSI1SK = now + "#" + job.JobID
	job.Status = string(JobStatusSubmitted)
	job.CreatedAt = now
	job.UpdatedAt = now

	av, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("marshal job item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("put job item: %w", err)
	}
	return nil
}

// UpdateProgress updates the job's status, progress percent and stage message.
func (s *Store) UpdateProgress(ctx context.Context, id string, status JobStatus, percent float64, message string) error {
	return s.set(ctx, id, "update progress", map[string]types.AttributeValue{
		"status":          str(string(status)),
		"progressPercent": num(percent),
		"stageMessage":    str(message),
	})
}

// CompleteJob marks the job as complete with its result location.
func (s *Store) CompleteJob(ctx context.Context, id string, out JobOutcome) error {
	fields := map[string]types.AttributeValue{
		"status":             str(string(JobStatusComplete)),
		"progressPercent":    num(1),
		"stageMessage":       str("Complete"),
		"title":              str(out.Title),
		"resultKey":          str(out.ResultKey),
		"resultUrl":          str(out.ResultURL),
		"normalizedDuration": &types.AttributeValueMemberN{Value: strconv.Itoa(out.NormalizedDuration)},
		"segments":           &types.AttributeValueMemberN{Value: strconv.Itoa(out.Segments)},
	}
	if len(out.AssetURLs) > 0 {
		fields["assetUrls"] = &types.AttributeValueMemberSS{Value: out.AssetURLs}
	}
	return s.set(ctx, id, "complete job", fields)
}

// FailJob marks the job as failed with the error's kind and user-facing message.
func (s *Store) FailJob(ctx context.Context, id string, kind apperr.Kind, errMsg string) error {
	return s.set(ctx, id, "fail job", map[string]types.AttributeValue{
		"status":       str(string(JobStatusFailed)),
		"errorKind":    str(string(kind)),
		"errorMessage": str(errMsg),
		"stageMessage": str("Failed: " + errMsg),
	})
}

// set writes fields plus updatedAt in one UpdateItem call.
func (s *Store) set(ctx context.Context, id, op string, fields map[string]types.AttributeValue) error {
	fields["updatedAt"] = str(s.now().UTC().Format(time.RFC3339))

	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)

	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	clauses := make([]string, len(names))
	for i, n := range names {
		exprNames[fmt.Sprintf("#f%d", i)] = n
		exprValues[fmt.Sprintf(":v%d", i)] = fields[n]
		clauses[i] = fmt.Sprintf("#f%d = :v%d", i, i)
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       jobKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(clauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetJob retrieves a single job by ID. It returns nil when the job does not exist.
func (s *Store) GetJob(ctx context.Context, id string) (*JobItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       jobKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item JobItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &item, nil
}

// ListJobs returns jobs ordered by creation time (newest first) via GSI1.
// cursor is the GSI1SK of the last item of the previous page.
func (s *Store) ListJobs(ctx context.Context, limit int, cursor string) ([]JobItem, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": str("JOBS"),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	if cursor != "" {
		_, id, ok := strings.Cut(cursor, "#")
		if !ok || id == "" {
			return nil, "", fmt.Errorf("invalid cursor format")
		}
		input.ExclusiveStartKey = jobKey(id)
		input.ExclusiveStartKey["GSI1PK"] = str("JOBS")
		input.ExclusiveStartKey["GSI1SK"] = str(cursor)
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, "", fmt.Errorf("list jobs: %w", err)
	}

	var items []JobItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, "", fmt.Errorf("unmarshal job list: %w", err)
	}

	var next string
	if result.LastEvaluatedKey != nil {
		if sk, ok := result.LastEvaluatedKey["GSI1SK"].(*types.AttributeValueMemberS); ok {
			next = sk.Value
		}
	}
	return items, next, nil
}

func str(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }

func num(v float64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(v, 'f', 2, 64)}
}
