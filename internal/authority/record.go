package authority

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// CartRecord is the server copy of a shopper's cart. Money is stored as decimal strings.
type CartRecord struct {
	ID        string       `bson:"_id,omitempty"`
	UserID    string       `bson:"user_id"`
	Items     []ItemRecord `bson:"items"`
	Coupon    *PromoRecord `bson:"coupon,omitempty"`
	GiftCard  *PromoRecord `bson:"gift_card,omitempty"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

type ItemRecord struct {
	ProductID string `bson:"product_id"`
	VariantID string `bson:"variant_id,omitempty"`
	Name      string `bson:"name"`
	Quantity  int    `bson:"quantity"`
	UnitPrice string `bson:"unit_price"`
}

// PromoRecord holds a coupon percentage or a gift card balance.
type PromoRecord struct {
	Code   string `bson:"code"`
	Amount string `bson:"amount"`
}

func recordFromPayload(userID string, p domain.SyncPayload) *CartRecord {
	rec := &CartRecord{UserID: userID, Items: make([]ItemRecord, 0, len(p.Items))}
	for _, item := range p.Items {
		rec.Items = append(rec.Items, ItemRecord{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.String(),
		})
	}
	if p.AppliedCoupon != nil {
		rec.Coupon = &PromoRecord{Code: p.AppliedCoupon.Code, Amount: p.AppliedCoupon.DiscountPercent.String()}
	}
	if p.AppliedGiftCard != nil {
		rec.GiftCard = &PromoRecord{Code: p.AppliedGiftCard.Code, Amount: p.AppliedGiftCard.Balance.String()}
	}
	return rec
}

// Payload converts the record back into the shape clients sync.
func (r *CartRecord) Payload() domain.SyncPayload {
	p := domain.SyncPayload{Items: make([]domain.CartItem, 0, len(r.Items))}
	for _, item := range r.Items {
		p.Items = append(p.Items, domain.CartItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: parseAmount(item.UnitPrice),
		})
	}
	if r.Coupon != nil {
		p.AppliedCoupon = &domain.Coupon{Code: r.Coupon.Code, DiscountPercent: parseAmount(r.Coupon.Amount)}
	}
	if r.GiftCard != nil {
		p.AppliedGiftCard = &domain.GiftCard{Code: r.GiftCard.Code, Balance: parseAmount(r.GiftCard.Amount)}
	}
	return p
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
