package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/example/storefront/internal/model"
)

const gsiName = "gsi1"

// DynamoStore implements Store on DynamoDB. Every document lives in one
// table under a "entity#id" partition key; a fixed-value GSI partition
// enables listing per entity class. Domain ids come from an atomic ADD on
// a separate counter table.
type DynamoStore struct {
	client       *dynamodb.Client
	tableName    string
	counterTable string
}

// dynamoDocument is the DynamoDB item structure. The document body is kept
// as a JSON blob; keys and the cart revision are lifted into attributes so
// conditions can reference them.
type dynamoDocument struct {
	PK       string `dynamodbav:"pk"`
	GSI1PK   string `dynamodbav:"gsi1pk"`
	Key      string `dynamodbav:"key"`
	Revision int64  `dynamodbav:"revision"`
	Doc      string `dynamodbav:"doc"`
}

func NewDynamoStore(client *dynamodb.Client, tableName, counterTable string) *DynamoStore {
	return &DynamoStore{
		client:       client,
		tableName:    tableName,
		counterTable: counterTable,
	}
}

func productPK(id int64) string     { return fmt.Sprintf("product#%d", id) }
func cartPK(id int64) string        { return fmt.Sprintf("cart#%d", id) }
func userPK(username string) string { return "user#" + username }

// NextID increments the per-entity counter atomically and returns the new value.
func (s *DynamoStore) NextID(ctx context.Context, entity string) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.counterTable),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: entity},
		},
		UpdateExpression:         aws.String("ADD #v :one"),
		ExpressionAttributeNames: map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", entity, err)
	}
	n, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("next id for %s: unexpected counter attribute", entity)
	}
	id, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("next id for %s: %w", entity, err)
	}
	return id, nil
}

func (s *DynamoStore) getDocument(ctx context.Context, pk string) (*dynamoDocument, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pk, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var item dynamoDocument
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", pk, err)
	}
	return &item, nil
}

func (s *DynamoStore) putDocument(ctx context.Context, item dynamoDocument, condition string, values map[string]types.AttributeValue) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", item.PK, err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if condition != "" {
		input.ConditionExpression = aws.String(condition)
		input.ExpressionAttributeValues = values
	}
	_, err = s.client.PutItem(ctx, input)
	return err
}

func (s *DynamoStore) deleteDocument(ctx context.Context, pk string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConditionExpression: aws.String("attribute_exists(pk)"),
	})
	if isConditionalCheckFailed(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", pk, err)
	}
	return nil
}

func (s *DynamoStore) listDocuments(ctx context.Context, gsi1pk string) ([]dynamoDocument, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsiName),
		KeyConditionExpression: aws.String("gsi1pk = :g"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberS{Value: gsi1pk},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", gsi1pk, err)
	}
	items := make([]dynamoDocument, 0, len(out.Items))
	for _, raw := range out.Items {
		var item dynamoDocument
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("unmarshal %s item: %w", gsi1pk, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Product operations

func (s *DynamoStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	items, err := s.listDocuments(ctx, "PRODUCT")
	if err != nil {
		return nil, err
	}
	products := make([]model.Product, 0, len(items))
	for _, item := range items {
		var p model.Product
		if err := json.Unmarshal([]byte(item.Doc), &p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", item.PK, err)
		}
		p.Key = item.Key
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *DynamoStore) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	item, err := s.getDocument(ctx, productPK(id))
	if err != nil {
		return nil, err
	}
	var p model.Product
	if err := json.Unmarshal([]byte(item.Doc), &p); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", id, err)
	}
	p.Key = item.Key
	return &p, nil
}

func (s *DynamoStore) InsertProduct(ctx context.Context, p *model.Product) error {
	if p.Key == "" {
		p.Key = uuid.New().String()
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product %d: %w", p.ID, err)
	}
	item := dynamoDocument{PK: productPK(p.ID), GSI1PK: "PRODUCT", Key: p.Key, Doc: string(doc)}
	err = s.putDocument(ctx, item, "attribute_not_exists(pk)", nil)
	if isConditionalCheckFailed(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert product %d: %w", p.ID, err)
	}
	return nil
}

func (s *DynamoStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product %d: %w", p.ID, err)
	}
	item := dynamoDocument{PK: productPK(p.ID), GSI1PK: "PRODUCT", Key: p.Key, Doc: string(doc)}
	err = s.putDocument(ctx, item, "attribute_exists(pk)", nil)
	if isConditionalCheckFailed(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return nil
}

func (s *DynamoStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteDocument(ctx, productPK(id))
}

// Cart operations

func (s *DynamoStore) GetCart(ctx context.Context, id int64) (*model.Cart, error) {
	item, err := s.getDocument(ctx, cartPK(id))
	if err != nil {
		return nil, err
	}
	var c model.Cart
	if err := json.Unmarshal([]byte(item.Doc), &c); err != nil {
		return nil, fmt.Errorf("decode cart %d: %w", id, err)
	}
	c.Key = item.Key
	c.Revision = item.Revision
	if c.Products == nil {
		c.Products = []model.Product{}
	}
	return &c, nil
}

func (s *DynamoStore) InsertCart(ctx context.Context, c *model.Cart) error {
	if c.Key == "" {
		c.Key = uuid.New().String()
	}
	c.Revision = 0
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %d: %w", c.ID, err)
	}
	item := dynamoDocument{PK: cartPK(c.ID), GSI1PK: "CART", Key: c.Key, Revision: 0, Doc: string(doc)}
	err = s.putDocument(ctx, item, "attribute_not_exists(pk)", nil)
	if isConditionalCheckFailed(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert cart %d: %w", c.ID, err)
	}
	return nil
}

// UpdateCart writes the cart conditionally on the revision the caller read,
// so a lost race surfaces as ErrConflict instead of a silent overwrite.
func (s *DynamoStore) UpdateCart(ctx context.Context, c *model.Cart) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart %d: %w", c.ID, err)
	}
	item := dynamoDocument{PK: cartPK(c.ID), GSI1PK: "CART", Key: c.Key, Revision: c.Revision + 1, Doc: string(doc)}
	err = s.putDocument(ctx, item, "attribute_exists(pk) AND revision = :rev", map[string]types.AttributeValue{
		":rev": &types.AttributeValueMemberN{Value: strconv.FormatInt(c.Revision, 10)},
	})
	if isConditionalCheckFailed(err) {
		if _, getErr := s.getDocument(ctx, cartPK(c.ID)); getErr == ErrNotFound {
			return ErrNotFound
		}
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update cart %d: %w", c.ID, err)
	}
	c.Revision++
	return nil
}

func (s *DynamoStore) DeleteCart(ctx context.Context, id int64) error {
	return s.deleteDocument(ctx, cartPK(id))
}

// User operations

func (s *DynamoStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	item, err := s.getDocument(ctx, userPK(username))
	if err != nil {
		return nil, err
	}
	var u struct {
		model.User
		PasswordHash string `json:"password_hash"`
	}
	if err := json.Unmarshal([]byte(item.Doc), &u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", username, err)
	}
	u.User.Key = item.Key
	u.User.PasswordHash = u.PasswordHash
	return &u.User, nil
}

func (s *DynamoStore) InsertUser(ctx context.Context, u *model.User) error {
	if u.Key == "" {
		u.Key = uuid.New().String()
	}
	doc, err := json.Marshal(struct {
		model.User
		PasswordHash string `json:"password_hash"`
	}{User: *u, PasswordHash: u.PasswordHash})
	if err != nil {
		return fmt.Errorf("encode user %s: %w", u.Username, err)
	}
	item := dynamoDocument{PK: userPK(u.Username), GSI1PK: "USER", Key: u.Key, Doc: string(doc)}
	err = s.putDocument(ctx, item, "attribute_not_exists(pk)", nil)
	if isConditionalCheckFailed(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
