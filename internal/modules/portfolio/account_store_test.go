package portfolio

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aristath/stonks/internal/domain"
	testutil "github.com/aristath/stonks/internal/testing"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjectAPI is an in-memory bucket honoring If-Match / If-None-Match
type fakeObjectAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	// beforePut runs once before the next conditional check, to simulate a racing writer
	beforePut func()
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string][]byte)}
}

func etagOf(body []byte) string {
	sum := md5.Sum(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fakeObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(body)),
		ETag: aws.String(etagOf(body)),
	}, nil
}

func (f *fakeObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	hook := f.beforePut
	f.beforePut = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	existing, exists := f.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "object exists"}
	}
	if in.IfMatch != nil && (!exists || etagOf(existing) != aws.ToString(in.IfMatch)) {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "etag mismatch"}
	}
	f.objects[key] = body
	return &s3.PutObjectOutput{ETag: aws.String(etagOf(body))}, nil
}

type storeFactory func(t *testing.T) domain.AccountStore

func allStores() map[string]storeFactory {
	return map[string]storeFactory{
		"sqlite": func(t *testing.T) domain.AccountStore {
			return NewSQLiteAccountStore(testutil.NewMemoryDB(t, "accounts"), zerolog.Nop())
		},
		"memory": func(t *testing.T) domain.AccountStore {
			return NewMemoryAccountStore()
		},
		"s3": func(t *testing.T) domain.AccountStore {
			return NewS3AccountStore(newFakeObjectAPI(), "bucket", "stonks", zerolog.Nop())
		},
	}
}

func TestAccountStores_Contract(t *testing.T) {
	for name, factory := range allStores() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			_, err := store.Get(ctx, "alice")
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)

			require.NoError(t, store.Create(ctx, domain.NewAccount("alice", domain.DefaultStartingBalance)))
			assert.ErrorIs(t, store.Create(ctx, domain.NewAccount("alice", dec("1"))), domain.ErrAccountExists)

			account, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(1), account.Version)
			assert.True(t, account.Balance.Equal(domain.DefaultStartingBalance))
			assert.Empty(t, account.Holdings)
			assert.False(t, account.UpdatedAt.IsZero())

			account.Balance = dec("8400")
			account.Holdings = []domain.Holding{
				{Symbol: "SigmaStock", Quantity: 15, AvgPrice: dec("106.6666666666666667")},
				{Symbol: "MemeCorp", Quantity: 1, AvgPrice: dec("3.5")},
			}
			account.UpdatedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
			require.NoError(t, store.Put(ctx, account))

			stale := account
			assert.ErrorIs(t, store.Put(ctx, stale), domain.ErrVersionConflict, "version 1 is no longer current")

			got, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Version)
			assert.True(t, got.Balance.Equal(dec("8400")))
			require.Len(t, got.Holdings, 2)
			assert.Equal(t, "SigmaStock", got.Holdings[0].Symbol, "holding order is preserved")
			assert.True(t, got.Holdings[0].AvgPrice.Equal(dec("106.6666666666666667")))
			assert.Equal(t, "MemeCorp", got.Holdings[1].Symbol)
			assert.Equal(t, account.UpdatedAt, got.UpdatedAt)

			// Removing a holding replaces the whole record
			got.Holdings = got.Holdings[1:]
			require.NoError(t, store.Put(ctx, got))
			final, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Len(t, final.Holdings, 1)
			assert.Equal(t, int64(3), final.Version)

			missing := domain.NewAccount("nobody", dec("1"))
			missing.Version = 1
			assert.ErrorIs(t, store.Put(ctx, missing), domain.ErrAccountNotFound)
		})
	}
}

func TestS3AccountStore_RacingWriterIsConflict(t *testing.T) {
	api := newFakeObjectAPI()
	store := NewS3AccountStore(api, "bucket", "stonks", zerolog.Nop())
	other := NewS3AccountStore(api, "bucket", "stonks", zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, domain.NewAccount("alice", dec("100"))))
	account, err := store.Get(ctx, "alice")
	require.NoError(t, err)

	// Another process writes between our read and our conditional put
	api.beforePut = func() {
		rival := account.Clone()
		rival.Balance = dec("1")
		require.NoError(t, other.Put(ctx, rival))
	}

	account.Balance = dec("50")
	err = store.Put(ctx, account)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	got, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(dec("1")), "rival write wins, ours is rejected")
}

func TestS3AccountStore_KeyLayout(t *testing.T) {
	api := newFakeObjectAPI()
	store := NewS3AccountStore(api, "bucket", "stonks", zerolog.Nop())

	require.NoError(t, store.Create(context.Background(), domain.NewAccount("alice", dec("1"))))
	_, ok := api.objects["stonks/accounts/alice.msgpack"]
	assert.True(t, ok)
}

func TestApiErrorCode(t *testing.T) {
	assert.Equal(t, "", apiErrorCode(nil))
	assert.Equal(t, "", apiErrorCode(errors.New("plain")))
	assert.Equal(t, "NoSuchKey", apiErrorCode(&types.NoSuchKey{}))
	assert.True(t, isPreconditionFailure(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
}
