package dynamodb

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/domain"
	"github.com/Apurer/go-gin-shipment-server/internal/domains/shipments/ports"
)

const defaultTableName = "shipment_records"

// API is the subset of the DynamoDB client used by the store.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

type shipmentItem struct {
	OrderID          string   `dynamodbav:"order_id"`
	Sequence         int32    `dynamodbav:"sequence"`
	OrderNumber      string   `dynamodbav:"order_number"`
	Method           string   `dynamodbav:"method"`
	CarrierName      string   `dynamodbav:"carrier_name"`
	ServiceName      string   `dynamodbav:"service_name,omitempty"`
	TrackingNumber   string   `dynamodbav:"tracking_number,omitempty"`
	TrackingURL      string   `dynamodbav:"tracking_url,omitempty"`
	LabelURLs        []string `dynamodbav:"label_urls,omitempty"`
	CarrierReference string   `dynamodbav:"carrier_reference,omitempty"`
	CostPaid         string   `dynamodbav:"cost_paid"`
	CostCharged      string   `dynamodbav:"cost_charged"`
	DeliveryStatus   string   `dynamodbav:"delivery_status"`
	ShippedAt        string   `dynamodbav:"shipped_at"`
	DeliveredAt      string   `dynamodbav:"delivered_at,omitempty"`
	Notes            string   `dynamodbav:"notes,omitempty"`
	UpdatedAt        string   `dynamodbav:"updated_at"`
}

// ShipmentRecordStore persists carrier metadata in DynamoDB.
//
// Table requirements:
//   - PK: order_id (string)
//   - SK: sequence (number)
type ShipmentRecordStore struct {
	ddb       API
	tableName string
	now       func() time.Time
}

var _ ports.ShipmentRecordStore = (*ShipmentRecordStore)(nil)

// NewShipmentRecordStore wires the store; the table name comes from SHIPMENT_RECORDS_TABLE.
func NewShipmentRecordStore(ddb API) *ShipmentRecordStore {
	return &ShipmentRecordStore{
		ddb:       ddb,
		tableName: getenvDefault("SHIPMENT_RECORDS_TABLE", defaultTableName),
		now:       time.Now,
	}
}

// Save puts the record, replacing any previous version of the same shipment.
func (s *ShipmentRecordStore) Save(ctx context.Context, record domain.ShipmentRecord) error {
	if s == nil || s.ddb == nil {
		return errors.New("dynamodb shipment record store not configured")
	}
	it := toItem(record, s.now())
	av, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}
	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return err
}

// Get fetches one shipment record with a consistent read.
func (s *ShipmentRecordStore) Get(ctx context.Context, orderID string, sequence int32) (*domain.ShipmentRecord, error) {
	if s == nil || s.ddb == nil {
		return nil, errors.New("dynamodb shipment record store not configured")
	}
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
			"sequence": &types.AttributeValueMemberN{Value: strconv.Itoa(int(sequence))},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrRecordNotFound
	}
	var it shipmentItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	record := fromItem(it)
	return &record, nil
}

// ListByOrder queries every record of an order in sequence order, following pagination.
func (s *ShipmentRecordStore) ListByOrder(ctx context.Context, orderID string) ([]domain.ShipmentRecord, error) {
	if s == nil || s.ddb == nil {
		return nil, errors.New("dynamodb shipment record store not configured")
	}
	var (
		records []domain.ShipmentRecord
		start   map[string]types.AttributeValue
	)
	for {
		out, err := s.ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("#order_id = :order_id"),
			ExpressionAttributeNames: map[string]string{
				"#order_id": "order_id",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":order_id": &types.AttributeValueMemberS{Value: orderID},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, err
		}
		var items []shipmentItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			records = append(records, fromItem(it))
		}
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		start = out.LastEvaluatedKey
	}
}

func toItem(record domain.ShipmentRecord, now time.Time) shipmentItem {
	it := shipmentItem{
		OrderID:          record.OrderID,
		Sequence:         record.Sequence,
		OrderNumber:      record.OrderNumber,
		Method:           string(record.Method),
		CarrierName:      record.CarrierName,
		ServiceName:      record.ServiceName,
		TrackingNumber:   record.TrackingNumber,
		TrackingURL:      record.TrackingURL,
		LabelURLs:        record.LabelURLs,
		CarrierReference: record.CarrierReference,
		CostPaid:         record.CostPaid.String(),
		CostCharged:      record.CostCharged.String(),
		DeliveryStatus:   string(record.DeliveryStatus),
		ShippedAt:        record.ShippedAt.UTC().Format(time.RFC3339Nano),
		Notes:            record.Notes,
		UpdatedAt:        now.UTC().Format(time.RFC3339Nano),
	}
	if record.DeliveredAt != nil {
		it.DeliveredAt = record.DeliveredAt.UTC().Format(time.RFC3339Nano)
	}
	return it
}

func fromItem(it shipmentItem) domain.ShipmentRecord {
	shippedAt, _ := time.Parse(time.RFC3339Nano, it.ShippedAt)
	costPaid, _ := decimal.NewFromString(orZero(it.CostPaid))
	costCharged, _ := decimal.NewFromString(orZero(it.CostCharged))
	record := domain.ShipmentRecord{
		OrderID:          it.OrderID,
		OrderNumber:      it.OrderNumber,
		Sequence:         it.Sequence,
		Method:           domain.ShippingMethod(it.Method),
		CarrierName:      it.CarrierName,
		ServiceName:      it.ServiceName,
		TrackingNumber:   it.TrackingNumber,
		TrackingURL:      it.TrackingURL,
		LabelURLs:        it.LabelURLs,
		CarrierReference: it.CarrierReference,
		CostPaid:         costPaid,
		CostCharged:      costCharged,
		DeliveryStatus:   domain.DeliveryStatus(it.DeliveryStatus),
		ShippedAt:        shippedAt,
		Notes:            it.Notes,
	}
	if it.DeliveredAt != "" {
		if at, err := time.Parse(time.RFC3339Nano, it.DeliveredAt); err == nil {
			record.DeliveredAt = &at
		}
	}
	return record
}

func orZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
