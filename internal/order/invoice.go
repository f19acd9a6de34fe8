package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// InvoiceLine is a formatted order line.
type InvoiceLine struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Quantity  int32  `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Amount    string `json:"amount"`
}

// Invoice is a display-ready rendering of an order for a locale.
type Invoice struct {
	OrderID   uuid.UUID     `json:"orderId"`
	Number    string        `json:"number"`
	Language  string        `json:"language"`
	Currency  string        `json:"currency"`
	Status    string        `json:"status"`
	IssuedAt  time.Time     `json:"issuedAt"`
	PromoCode string        `json:"promoCode,omitempty"`
	Lines     []InvoiceLine `json:"lines"`
	Summary   string        `json:"summary"`
	Items     string        `json:"itemsPrice"`
	Tax       string        `json:"taxPrice"`
	Shipping  string        `json:"shippingPrice"`
	Discount  string        `json:"discountAmount"`
	Total     string        `json:"totalPrice"`
}

// Invoice renders an order for the given BCP 47 language tag (or Accept-Language value).
func (s *Service) Invoice(ctx context.Context, id uuid.UUID, userID string, asAdmin bool, lang string) (Invoice, error) {
	v, err := s.Get(ctx, id, userID, asAdmin)
	if err != nil {
		return Invoice{}, err
	}
	return BuildInvoice(v, lang), nil
}

// BuildInvoice formats v for lang.
func BuildInvoice(v View, lang string) Invoice {
	tag := matchLanguage(lang)
	f := newMoneyFormatter(tag, v.Currency)

	inv := Invoice{
		OrderID:  v.ID,
		Number:   "INV-" + strings.ToUpper(strings.ReplaceAll(v.ID.String(), "-", "")[:12]),
		Language: tag.String(),
		Currency: v.Currency,
		Status:   string(v.Status),
		IssuedAt: v.CreatedAt,
		Lines:    make([]InvoiceLine, 0, len(v.Items)),
		Items:    f.format(v.ItemsPrice),
		Tax:      f.format(v.TaxPrice),
		Shipping: f.format(v.ShippingPrice),
		Discount: f.format(v.DiscountAmount),
		Total:    f.format(v.TotalPrice),
	}
	if v.PaidAt != nil {
		inv.IssuedAt = *v.PaidAt
	}
	if v.PromoCode != nil {
		inv.PromoCode = *v.PromoCode
	}
	var units int64
	for _, it := range v.Items {
		units += int64(it.Quantity)
		inv.Lines = append(inv.Lines, InvoiceLine{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: f.format(it.UnitPrice),
			Amount:    f.format(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))),
		})
	}
	inv.Summary = f.printer.Sprintf("%d books, %d lines", units, len(v.Items))
	return inv
}

var supportedLanguages = language.NewMatcher([]language.Tag{
	language.English,
	language.MustParse("en-IN"),
	language.Hindi,
	language.German,
	language.French,
})

func matchLanguage(lang string) language.Tag {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(lang)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	tag, _, _ := supportedLanguages.Match(tags...)
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == language.Exact {
		if t, err := language.Compose(base, region); err == nil {
			return t
		}
	}
	return language.Make(base.String())
}

type moneyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
	code    string
	known   bool
}

func newMoneyFormatter(tag language.Tag, code string) moneyFormatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	return moneyFormatter{printer: message.NewPrinter(tag), unit: unit, code: code, known: err == nil}
}

func (f moneyFormatter) format(amount decimal.Decimal) string {
	if !f.known {
		return amount.StringFixed(2) + " " + f.code
	}
	return f.printer.Sprint(currency.Symbol(f.unit.Amount(amount.Round(2).InexactFloat64())))
}
