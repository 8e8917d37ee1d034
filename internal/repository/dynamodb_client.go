package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"

	"travel-assistant/internal/domain"
)

const (
	pkPrefixLead  = "LEAD#"
	skPrefixMsg   = "MSG#"
	anonymousLead = "anonymous"
	ttlDuration   = 30 * 24 * time.Hour // 30-day TTL
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// turnRecord is the stored item shape. Turns for one lead share a partition
// and sort by write time.
type turnRecord struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	LeadID    string `dynamodbav:"leadId,omitempty"`
	Role      string `dynamodbav:"role"`
	Message   string `dynamodbav:"message"`
	CreatedAt string `dynamodbav:"createdAt"`
	TTL       int64  `dynamodbav:"ttl"`
}

// DynamoStore appends turns to a DynamoDB table.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

// leadPK returns the partition key for a lead.
func leadPK(leadID string) string {
	if leadID == "" {
		leadID = anonymousLead
	}
	return pkPrefixLead + leadID
}

// msgSK returns a unique sort key ordered by timestamp. The two turns of one
// request can share a timestamp, so a random suffix keeps them distinct.
func msgSK(ts time.Time) string {
	return skPrefixMsg + ts.UTC().Format(time.RFC3339Nano) + "#" + newID()
}

// AppendTurn writes one turn; it never overwrites an existing item.
func (s *DynamoStore) AppendTurn(ctx context.Context, turn domain.Turn) error {
	ts := now().UTC()
	rec := turnRecord{
		PK:        leadPK(turn.Lead()),
		SK:        msgSK(ts),
		LeadID:    turn.Lead(),
		Role:      string(turn.Role),
		Message:   turn.Message,
		CreatedAt: ts.Format(time.RFC3339Nano),
		TTL:       ts.Add(ttlDuration).Unix(),
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("repository: marshal turn: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: AppendTurn: %w", err)
	}
	return nil
}

var (
	now   = time.Now
	newID = uuid.NewString
)
