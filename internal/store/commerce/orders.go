package commerce

import (
	"context"
	"errors"
	"fmt"
)

// Every order query joins orders and filters on the caller's user id, so a
// foreign order id reads exactly like a missing one.
const (
	paymentQuery = `
SELECT pay.amount
FROM payment AS pay
JOIN orders AS o ON o.id = pay.order_id
WHERE pay.order_id = $1 AND o.user_id = $2
LIMIT 1`

	itemStatusQuery = `
SELECT oi.item_status
FROM order_item AS oi
JOIN orders AS o ON o.id = oi.order_id
JOIN product AS p ON p.id = oi.product_id
WHERE oi.order_id = $1 AND o.user_id = $2 AND unaccent(p.product_name) ILIKE unaccent($3)
LIMIT 1`

	refundStatusQuery = `
SELECT oi.refund_status
FROM order_item AS oi
JOIN orders AS o ON o.id = oi.order_id
JOIN product AS p ON p.id = oi.product_id
WHERE oi.order_id = $1 AND o.user_id = $2 AND unaccent(p.product_name) ILIKE unaccent($3)
LIMIT 1`
)

// PaymentAmount reports the amount paid for one of the user's orders.
func (s *Store) PaymentAmount(ctx context.Context, orderID int64, userID string) (string, error) {
	amount, err := scalar[float64](ctx, s.db, paymentQuery, orderID, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.log.Debug().Int64("order_id", orderID).Str("user_id", userID).Msg("payment not visible to user")
		return fmt.Sprintf("'%d' numaralı siparişiniz için ödeme bilgisi bulunamadı.", orderID), nil
	case err != nil:
		return "", fmt.Errorf("payment of order %d: %w", orderID, err)
	}
	return fmt.Sprintf("'%d' numaralı siparişinizin ödeme tutarı %.2f TL'dir.", orderID, amount), nil
}

// ItemStatus reports the shipping state of a product in one of the user's orders.
func (s *Store) ItemStatus(ctx context.Context, orderID int64, product, userID string) (string, error) {
	status, err := scalar[string](ctx, s.db, itemStatusQuery, orderID, userID, like(product))
	if status == "" && err == nil {
		err = ErrNotFound
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("'%d' numaralı siparişinizde '%s' adında bir ürün bulunamadı.", orderID, product), nil
	case err != nil:
		return "", fmt.Errorf("item status of order %d: %w", orderID, err)
	}
	return fmt.Sprintf("'%d' numaralı siparişinizdeki '%s' ürününün durumu: %s.", orderID, product, status), nil
}

// RefundStatus reports the refund state of a product in one of the user's orders.
func (s *Store) RefundStatus(ctx context.Context, orderID int64, product, userID string) (string, error) {
	status, err := scalar[string](ctx, s.db, refundStatusQuery, orderID, userID, like(product))
	if status == "" && err == nil {
		err = ErrNotFound
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Sprintf("'%d' numaralı siparişinizde '%s' ürünü için iade bilgisi bulunamadı.", orderID, product), nil
	case err != nil:
		return "", fmt.Errorf("refund status of order %d: %w", orderID, err)
	}
	return fmt.Sprintf("'%d' numaralı siparişinizdeki '%s' ürününün iade durumu: %s.", orderID, product, status), nil
}
