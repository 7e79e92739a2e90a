package tools

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/shopdesk/backend/internal/model/chat"
)

// fakeCommerce owns orders by user id and answers like the SQL store.
type fakeCommerce struct {
	owners map[int64]string
	failOn string
}

func (f *fakeCommerce) fail(op string) error {
	if f.failOn == op {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeCommerce) owned(orderID int64, userID string) bool {
	return f.owners[orderID] == userID
}

func (f *fakeCommerce) PriceInfo(_ context.Context, product string) (string, error) {
	if err := f.fail("price"); err != nil {
		return "", err
	}
	return fmt.Sprintf("'%s' ürününün güncel fiyatı 100.00 TL'dir.", product), nil
}

func (f *fakeCommerce) StockInfo(_ context.Context, product string) (string, error) {
	return fmt.Sprintf("'%s' ürününden 3 adet mevcuttur.", product), nil
}

func (f *fakeCommerce) PaymentAmount(_ context.Context, orderID int64, userID string) (string, error) {
	if !f.owned(orderID, userID) {
		return fmt.Sprintf("'%d' numaralı sipariş için size ait ödeme bilgisi bulunamadı.", orderID), nil
	}
	return fmt.Sprintf("'%d' numaralı siparişin ödeme tutarı 250.00 TL'dir.", orderID), nil
}

func (f *fakeCommerce) ItemStatus(_ context.Context, orderID int64, product, userID string) (string, error) {
	if !f.owned(orderID, userID) {
		return fmt.Sprintf("'%d' numaralı siparişinizde '%s' adında bir ürün bulunamadı.", orderID, product), nil
	}
	return fmt.Sprintf("'%d' numaralı siparişinizdeki '%s' ürününün durumu: kargolandı.", orderID, product), nil
}

func (f *fakeCommerce) RefundStatus(_ context.Context, orderID int64, product, userID string) (string, error) {
	if !f.owned(orderID, userID) {
		return "iade bilgisi bulunamadı", nil
	}
	return "iade onaylandı", nil
}

func (f *fakeCommerce) ProductDetails(_ context.Context, product string) (string, error) {
	if err := f.fail("details"); err != nil {
		return "", err
	}
	return product + " detayları", nil
}

func (f *fakeCommerce) Recommendations(_ context.Context, _ string) (string, error) {
	return "", nil
}

type fakeRetriever struct {
	docs []*schema.Document
}

func (r *fakeRetriever) Retrieve(_ context.Context, _ string, opts ...retriever.Option) ([]*schema.Document, error) {
	options := retriever.GetCommonOptions(&retriever.Options{}, opts...)
	if options.TopK != nil && len(r.docs) > *options.TopK {
		return r.docs[:*options.TopK], nil
	}
	return r.docs, nil
}

func newDispatcher(t *testing.T, store Commerce, extra ...Operation) *Dispatcher {
	t.Helper()
	ops := append(Builtin(store, &fakeRetriever{docs: []*schema.Document{{Content: "İade süresi 14 gündür."}}}, 3), extra...)
	registry, err := NewRegistry(ops...)
	require.NoError(t, err)
	return NewDispatcher(registry, DispatcherOptions{Concurrency: 2}, zerolog.Nop())
}

func TestDispatchRequiresUser(t *testing.T) {
	d := newDispatcher(t, &fakeCommerce{})
	_, err := d.Dispatch(context.Background(), []chat.ToolCall{{ID: "1", Name: PriceInfo}}, "")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestDispatchUnknownOperationIsReported(t *testing.T) {
	d := newDispatcher(t, &fakeCommerce{})
	results, err := d.Dispatch(context.Background(), []chat.ToolCall{{ID: "1", Name: "drop_tables"}}, "7")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ToolCallID)
	assert.Contains(t, results[0].Content, "tanınmayan")
	assert.Contains(t, results[0].Content, "drop_tables")
}

func TestDispatchIgnoresForgedUserID(t *testing.T) {
	store := &fakeCommerce{owners: map[int64]string{100: "alice", 200: "bob"}}
	d := newDispatcher(t, store)

	calls := []chat.ToolCall{
		{ID: "a", Name: ItemStatus, Arguments: map[string]any{"order_id": float64(200), "product_name": "Kulaklık", "user_id": "bob"}},
		{ID: "b", Name: PaymentAmount, Arguments: map[string]any{"order_id": "200", "user_id": "bob"}},
		{ID: "c", Name: ItemStatus, Arguments: map[string]any{"order_id": float64(100), "product_name": "Kulaklık"}},
	}

	results, err := d.Dispatch(context.Background(), calls, "alice")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Contains(t, results[0].Content, "bulunamadı")
	assert.NotContains(t, results[0].Content, "kargolandı")
	assert.Contains(t, results[1].Content, "bulunamadı")
	assert.Contains(t, results[2].Content, "kargolandı")
}

func TestDispatchAuthorizationScopingForAllPairs(t *testing.T) {
	owners := map[int64]string{1: "u1", 2: "u2", 3: "u3"}
	d := newDispatcher(t, &fakeCommerce{owners: owners})

	for orderID, owner := range owners {
		for _, user := range []string{"u1", "u2", "u3"} {
			if user == owner {
				continue
			}
			call := chat.ToolCall{ID: "x", Name: RefundStatus, Arguments: map[string]any{
				"order_id": float64(orderID), "product_name": "Saat", "user_id": owner,
			}}
			results, err := d.Dispatch(context.Background(), []chat.ToolCall{call}, user)
			require.NoError(t, err)
			assert.Equal(t, "iade bilgisi bulunamadı", results[0].Content, "user %s must not see order %d", user, orderID)
		}
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	store := &fakeCommerce{failOn: "price"}
	panicky := NewOperation(&schema.ToolInfo{Name: "panicky"}, Traits{}, func(context.Context, Args, string) (string, error) {
		panic("boom")
	})
	d := newDispatcher(t, store, panicky)

	calls := []chat.ToolCall{
		{ID: "1", Name: PriceInfo, Arguments: map[string]any{"product_name": "iPhone"}},
		{ID: "2", Name: "panicky"},
		{ID: "3", Name: ProductDetails, Arguments: map[string]any{"product_name": "iPhone"}},
		{ID: "4", Name: ProductDetails},
	}

	results, err := d.Dispatch(context.Background(), calls, "7")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Contains(t, results[0].Content, ErrorMarker)
	assert.NotContains(t, results[0].Content, "connection refused", "raw errors must not leak")
	assert.Contains(t, results[1].Content, ErrorMarker)
	assert.Equal(t, "iPhone detayları", results[2].Content)
	assert.Contains(t, results[3].Content, ErrorMarker, "missing argument is a call failure")

	for i, id := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, id, results[i].ToolCallID)
		assert.Equal(t, chat.RoleTool, results[i].Role)
	}
}

func TestDispatchWaitsForWholeBatch(t *testing.T) {
	var finished int32
	slow := NewOperation(&schema.ToolInfo{Name: "slow"}, Traits{}, func(ctx context.Context, _ Args, _ string) (string, error) {
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&finished, 1)
		return "done", nil
	})
	d := newDispatcher(t, &fakeCommerce{}, slow)

	calls := make([]chat.ToolCall, 5)
	for i := range calls {
		calls[i] = chat.ToolCall{ID: fmt.Sprintf("s%d", i), Name: "slow"}
	}

	results, err := d.Dispatch(context.Background(), calls, "7")
	require.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, int32(5), atomic.LoadInt32(&finished))
}

func TestSearchDocumentsFormatsHits(t *testing.T) {
	d := newDispatcher(t, &fakeCommerce{})
	results, err := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "1", Name: SearchDocuments, Arguments: map[string]any{"query": "iade süresi"}},
	}, "7")
	require.NoError(t, err)
	assert.Contains(t, results[0].Content, "İade süresi 14 gündür.")
}

func TestSearchDocumentsWithoutIndex(t *testing.T) {
	registry, err := NewRegistry(Builtin(&fakeCommerce{}, nil, 3)...)
	require.NoError(t, err)
	d := NewDispatcher(registry, DispatcherOptions{}, zerolog.Nop())

	results, err := d.Dispatch(context.Background(), []chat.ToolCall{
		{ID: "1", Name: SearchDocuments, Arguments: map[string]any{"query": "kargo"}},
	}, "7")
	require.NoError(t, err)
	assert.Equal(t, "Belge arama servisi şu anda kullanılamıyor.", results[0].Content)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	op := NewOperation(&schema.ToolInfo{Name: "x"}, Traits{}, nil)
	_, err := NewRegistry(op, op)
	assert.Error(t, err)
}

func TestRegistryTraits(t *testing.T) {
	registry, err := NewRegistry(Builtin(&fakeCommerce{}, nil, 3)...)
	require.NoError(t, err)

	assert.True(t, registry.Traits(StockInfo).Volatile)
	assert.True(t, registry.Traits(Recommendations).Recommendation)
	assert.True(t, registry.Traits(ItemStatus).UserScoped)
	assert.False(t, registry.Traits(ProductDetails).UserScoped)
	assert.Equal(t, Traits{}, registry.Traits("nope"))
	assert.Len(t, registry.Infos(), 8)
}
