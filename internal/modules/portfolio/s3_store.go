package portfolio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aristath/stonks/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// ObjectAPI is the subset of the S3 client used by S3AccountStore
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// accountDocument is the msgpack encoding of one account object
type accountDocument struct {
	UserID    string            `msgpack:"user_id"`
	Balance   string            `msgpack:"balance"`
	Holdings  []holdingDocument `msgpack:"holdings"`
	Version   int64             `msgpack:"version"`
	UpdatedAt time.Time         `msgpack:"updated_at"`
}

type holdingDocument struct {
	Symbol   string `msgpack:"symbol"`
	Quantity int64  `msgpack:"quantity"`
	AvgPrice string `msgpack:"avg_price"`
}

// S3AccountStore keeps one msgpack object per account in an S3-compatible bucket.
// Writes are conditional on the object's ETag, so concurrent writers from any
// process see ErrVersionConflict instead of overwriting each other.
type S3AccountStore struct {
	client ObjectAPI
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3AccountStore creates an account store rooted at bucket/prefix/accounts/
func NewS3AccountStore(client ObjectAPI, bucket, prefix string, log zerolog.Logger) *S3AccountStore {
	return &S3AccountStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    log.With().Str("repo", "s3_accounts").Logger(),
	}
}

func (s *S3AccountStore) key(userID string) string {
	return path.Join(s.prefix, "accounts", userID+".msgpack")
}

// Get downloads and decodes the account object
func (s *S3AccountStore) Get(ctx context.Context, userID string) (domain.Account, error) {
	doc, _, err := s.fetch(ctx, userID)
	if err != nil {
		return domain.Account{}, err
	}
	return doc.toAccount()
}

// Create writes the account at version 1, failing if the object already exists
func (s *S3AccountStore) Create(ctx context.Context, account domain.Account) error {
	doc := newAccountDocument(account, 1)
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(account.UserID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/msgpack"),
		IfNoneMatch: aws.String("*"),
	})
	if isPreconditionFailure(err) {
		return domain.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("failed to create account object: %w", err)
	}
	return nil
}

// Put replaces the object if both the stored version and its ETag are unchanged
func (s *S3AccountStore) Put(ctx context.Context, account domain.Account) error {
	current, etag, err := s.fetch(ctx, account.UserID)
	if err != nil {
		return err
	}
	if current.Version != account.Version {
		return domain.ErrVersionConflict
	}

	body, err := msgpack.Marshal(newAccountDocument(account, account.Version+1))
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(account.UserID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/msgpack"),
		IfMatch:     aws.String(etag),
	})
	if isPreconditionFailure(err) {
		s.log.Debug().Str("user_id", account.UserID).Msg("Account object changed during write")
		return domain.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("failed to store account object: %w", err)
	}
	return nil
}

func (s *S3AccountStore) fetch(ctx context.Context, userID string) (accountDocument, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(userID)),
	})
	if apiErrorCode(err) == "NoSuchKey" {
		return accountDocument{}, "", domain.ErrAccountNotFound
	}
	if err != nil {
		return accountDocument{}, "", fmt.Errorf("failed to get account object: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return accountDocument{}, "", fmt.Errorf("failed to read account object: %w", err)
	}

	var doc accountDocument
	if err := msgpack.Unmarshal(body, &doc); err != nil {
		return accountDocument{}, "", fmt.Errorf("failed to decode account object: %w", err)
	}

	return doc, aws.ToString(out.ETag), nil
}

func newAccountDocument(account domain.Account, version int64) accountDocument {
	updatedAt := account.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	doc := accountDocument{
		UserID:    account.UserID,
		Balance:   account.Balance.String(),
		Holdings:  make([]holdingDocument, 0, len(account.Holdings)),
		Version:   version,
		UpdatedAt: updatedAt,
	}
	for _, h := range account.Holdings {
		doc.Holdings = append(doc.Holdings, holdingDocument{
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			AvgPrice: h.AvgPrice.String(),
		})
	}
	return doc
}

func (d accountDocument) toAccount() (domain.Account, error) {
	balance, err := decimal.NewFromString(d.Balance)
	if err != nil {
		return domain.Account{}, fmt.Errorf("invalid stored balance for %s: %w", d.UserID, err)
	}

	account := domain.Account{
		UserID:    d.UserID,
		Balance:   balance,
		Holdings:  make([]domain.Holding, 0, len(d.Holdings)),
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	for _, h := range d.Holdings {
		avg, err := decimal.NewFromString(h.AvgPrice)
		if err != nil {
			return domain.Account{}, fmt.Errorf("invalid stored avg price for %s/%s: %w", d.UserID, h.Symbol, err)
		}
		account.Holdings = append(account.Holdings, domain.Holding{
			Symbol:   h.Symbol,
			Quantity: h.Quantity,
			AvgPrice: avg,
		})
	}
	return account, nil
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isPreconditionFailure(err error) bool {
	switch apiErrorCode(err) {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
