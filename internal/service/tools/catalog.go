package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// Operation names as offered to the LLM.
const (
	PriceInfo       = "get_price_info_tool"
	StockInfo       = "get_stock_info_tool"
	PaymentAmount   = "get_payment_amount_tool"
	ItemStatus      = "get_item_status_tool"
	RefundStatus    = "get_refund_status_tool"
	ProductDetails  = "get_product_details_tool"
	Recommendations = "get_recommendations_tool"
	SearchDocuments = "search_documents_tool"
)

// Commerce is the data-access surface behind the built-in operations.
type Commerce interface {
	PriceInfo(ctx context.Context, product string) (string, error)
	StockInfo(ctx context.Context, product string) (string, error)
	PaymentAmount(ctx context.Context, orderID int64, userID string) (string, error)
	ItemStatus(ctx context.Context, orderID int64, product, userID string) (string, error)
	RefundStatus(ctx context.Context, orderID int64, product, userID string) (string, error)
	ProductDetails(ctx context.Context, product string) (string, error)
	Recommendations(ctx context.Context, product string) (string, error)
}

var (
	productParam = &schema.ParameterInfo{Type: schema.String, Desc: "Ürünün adı", Required: true}
	orderParam   = &schema.ParameterInfo{Type: schema.Integer, Desc: "Sipariş numarası", Required: true}
	queryParam   = &schema.ParameterInfo{Type: schema.String, Desc: "Belgelerde aranacak soru", Required: true}
)

func info(name, desc string, params map[string]*schema.ParameterInfo) *schema.ToolInfo {
	return &schema.ToolInfo{
		Name:        name,
		Desc:        desc,
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

// Builtin returns the standard catalogue over the commerce store and the
// document retriever. docs may be nil when document search is unavailable.
func Builtin(store Commerce, docs retriever.Retriever, topK int) []Operation {
	if topK <= 0 {
		topK = 3
	}

	return []Operation{
		NewOperation(
			info(PriceInfo, "Bir ürünün fiyatını öğrenmek için kullanılır.",
				map[string]*schema.ParameterInfo{"product_name": productParam}),
			Traits{},
			func(ctx context.Context, args Args, _ string) (string, error) {
				product, err := args.String("product_name")
				if err != nil {
					return "", err
				}
				return store.PriceInfo(ctx, product)
			},
		),
		NewOperation(
			info(StockInfo, "Bir ürünün stokta kaç adet olduğunu öğrenmek için kullanılır.",
				map[string]*schema.ParameterInfo{"product_name": productParam}),
			Traits{Volatile: true},
			func(ctx context.Context, args Args, _ string) (string, error) {
				product, err := args.String("product_name")
				if err != nil {
					return "", err
				}
				return store.StockInfo(ctx, product)
			},
		),
		NewOperation(
			info(PaymentAmount, "Kullanıcının bir siparişinin toplam ödeme tutarını öğrenmek için kullanılır.",
				map[string]*schema.ParameterInfo{"order_id": orderParam}),
			Traits{UserScoped: true},
			func(ctx context.Context, args Args, userID string) (string, error) {
				orderID, err := args.Int64("order_id")
				if err != nil {
					return "", err
				}
				return store.PaymentAmount(ctx, orderID, userID)
			},
		),
		NewOperation(
			info(ItemStatus, "Kullanıcının siparişindeki bir ürünün durumunu (kargolandı, hazırlanıyor vb.) öğrenmek için kullanılır.",
				map[string]*schema.ParameterInfo{"order_id": orderParam, "product_name": productParam}),
			Traits{UserScoped: true},
			func(ctx context.Context, args Args, userID string) (string, error) {
				orderID, product, err := orderAndProduct(args)
				if err != nil {
					return "", err
				}
				return store.ItemStatus(ctx, orderID, product, userID)
			},
		),
		NewOperation(
			info(RefundStatus, "Kullanıcının siparişindeki bir ürünün iade durumunu öğrenmek için kullanılır.",
				map[string]*schema.ParameterInfo{"order_id": orderParam, "product_name": productParam}),
			Traits{UserScoped: true},
			func(ctx context.Context, args Args, userID string) (string, error) {
				orderID, product, err := orderAndProduct(args)
				if err != nil {
					return "", err
				}
				return store.RefundStatus(ctx, orderID, product, userID)
			},
		),
		NewOperation(
			info(ProductDetails, "Kullanıcı belirli bir ürün hakkında bilgi (fiyat, açıklama) veya tavsiye istediğinde kullanılır.",
				map[string]*schema.ParameterInfo{"product_name": productParam}),
			Traits{},
			func(ctx context.Context, args Args, _ string) (string, error) {
				product, err := args.String("product_name")
				if err != nil {
					return "", err
				}
				return store.ProductDetails(ctx, product)
			},
		),
		NewOperation(
			info(Recommendations, "Bir ürüne benzer, kullanıcıya önerilebilecek ürünleri bulmak için kullanılır.",
				map[string]*schema.ParameterInfo{"product_name": productParam}),
			Traits{Recommendation: true},
			func(ctx context.Context, args Args, _ string) (string, error) {
				product, err := args.String("product_name")
				if err != nil {
					return "", err
				}
				return store.Recommendations(ctx, product)
			},
		),
		NewOperation(
			info(SearchDocuments, "İade politikası, kargo süreci, garanti, kullanım koşulları veya sıkça sorulan sorular gibi genel sorular için kullanılır. Ürün fiyatı veya stok gibi veritabanı bilgileri için kullanılmaz.",
				map[string]*schema.ParameterInfo{"query": queryParam}),
			Traits{},
			func(ctx context.Context, args Args, _ string) (string, error) {
				query, err := args.String("query")
				if err != nil {
					return "", err
				}
				return searchDocuments(ctx, docs, query, topK)
			},
		),
	}
}

func orderAndProduct(args Args) (int64, string, error) {
	orderID, err := args.Int64("order_id")
	if err != nil {
		return 0, "", err
	}
	product, err := args.String("product_name")
	if err != nil {
		return 0, "", err
	}
	return orderID, product, nil
}

func searchDocuments(ctx context.Context, docs retriever.Retriever, query string, topK int) (string, error) {
	if docs == nil {
		return "Belge arama servisi şu anda kullanılamıyor.", nil
	}

	found, err := docs.Retrieve(ctx, query, retriever.WithTopK(topK))
	if err != nil {
		return "", fmt.Errorf("retrieve documents: %w", err)
	}
	if len(found) == 0 {
		return "Belgelerde bu konuyla ilgili bir bilgi bulunamadı.", nil
	}

	parts := make([]string, 0, len(found))
	for _, doc := range found {
		parts = append(parts, strings.TrimSpace(doc.Content))
	}
	return "Konuyla ilgili belgelerden şu bilgiler bulundu:\n\n" + strings.Join(parts, "\n\n---\n\n"), nil
}
