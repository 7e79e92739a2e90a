package commerce

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	priceQuery = `SELECT price FROM product WHERE unaccent(product_name) ILIKE unaccent($1) LIMIT 1`
	stockQuery = `SELECT stock_quantity FROM product WHERE unaccent(product_name) ILIKE unaccent($1) LIMIT 1`

	detailsQuery = `
SELECT product_name, price, COALESCE(description, '')
FROM product
WHERE unaccent(product_name) ILIKE unaccent($1)
LIMIT 1`

	recommendationsQuery = `
SELECT p.product_name, p.price
FROM product AS p
JOIN product AS src ON src.category_id = p.category_id
WHERE unaccent(src.product_name) ILIKE unaccent($1)
  AND p.id <> src.id
  AND p.stock_quantity > 0
ORDER BY p.price
LIMIT $2`

	recommendationLimit = 3
)

// PriceInfo reports the current price of a product.
func (s *Store) PriceInfo(ctx context.Context, product string) (string, error) {
	price, err := scalar[float64](ctx, s.db, priceQuery, like(product))
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("Sistemimizde '%s' adlı bir ürün bulunamadı veya fiyat bilgisi mevcut değil.", product), nil
	case err != nil:
		return "", fmt.Errorf("price of %q: %w", product, err)
	}
	return fmt.Sprintf("'%s' ürününün güncel fiyatı %.2f TL'dir.", product, price), nil
}

// StockInfo reports how many units of a product are in stock.
func (s *Store) StockInfo(ctx context.Context, product string) (string, error) {
	qty, err := scalar[int64](ctx, s.db, stockQuery, like(product))
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("'%s' adında bir ürün bulunamadı.", product), nil
	case err != nil:
		return "", fmt.Errorf("stock of %q: %w", product, err)
	}
	if qty <= 0 {
		return fmt.Sprintf("'%s' ürünü şu anda stoklarımızda tükenmiştir.", product), nil
	}
	return fmt.Sprintf("Evet, '%s' ürününden stoklarımızda %d adet mevcuttur.", product, qty), nil
}

// ProductDetails describes a product with its price and description. Stock
// is left to StockInfo so that details stay cacheable.
func (s *Store) ProductDetails(ctx context.Context, product string) (string, error) {
	var (
		name, description string
		price             float64
	)
	err := s.db.QueryRowContext(ctx, detailsQuery, like(product)).Scan(&name, &price, &description)
	switch {
	case isNoRows(err):
		return fmt.Sprintf("'%s' adında bir ürün bulunamadı.", product), nil
	case err != nil:
		return "", fmt.Errorf("details of %q: %w", product, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: fiyatı %.2f TL.", name, price)
	if description = strings.TrimSpace(description); description != "" {
		b.WriteString(" ")
		b.WriteString(description)
	}
	return b.String(), nil
}

// Recommendations lists in-stock products of the same category. An empty
// result means there is nothing to recommend.
func (s *Store) Recommendations(ctx context.Context, product string) (string, error) {
	rows, err := s.db.QueryContext(ctx, recommendationsQuery, like(product), recommendationLimit)
	if err != nil {
		return "", fmt.Errorf("recommendations for %q: %w", product, err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var (
			name  string
			price float64
		)
		if err := rows.Scan(&name, &price); err != nil {
			return "", fmt.Errorf("scan recommendation: %w", err)
		}
		items = append(items, fmt.Sprintf("%s (%.2f TL)", name, price))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("recommendations for %q: %w", product, err)
	}

	if len(items) == 0 {
		return "", nil
	}
	return fmt.Sprintf("'%s' ile ilgilenenler şunlara da baktı: %s.", product, strings.Join(items, ", ")), nil
}
