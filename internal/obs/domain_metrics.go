package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PromoValidationTotal counts promo validation outcomes by result.
	PromoValidationTotal *prometheus.CounterVec
	// PromoRedemptionTotal counts promo redemption attempts by result.
	PromoRedemptionTotal *prometheus.CounterVec
	// CheckoutQuoteTotal counts priced carts, labelled by whether a promo was applied.
	CheckoutQuoteTotal *prometheus.CounterVec
	// OrderCreatedTotal counts orders persisted by checkout.
	OrderCreatedTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PromoValidationTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_validation_total",
			Help:      "Count of promo code validations by outcome.",
		}, []string{"result"}))
		PromoRedemptionTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_redemption_total",
			Help:      "Count of promo code redemptions by outcome.",
		}, []string{"result"}))
		CheckoutQuoteTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_quote_total",
			Help:      "Count of priced carts, labelled by promo outcome.",
		}, []string{"promo"}))
		OrderCreatedTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_created_total",
			Help:      "Number of orders created at checkout.",
		}))
	})
}

// ObservePromoValidation increments PromoValidationTotal when domain metrics are registered.
func ObservePromoValidation(result string) {
	if PromoValidationTotal != nil {
		PromoValidationTotal.WithLabelValues(result).Inc()
	}
}

// ObservePromoRedemption increments PromoRedemptionTotal when domain metrics are registered.
func ObservePromoRedemption(result string) {
	if PromoRedemptionTotal != nil {
		PromoRedemptionTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCheckoutQuote increments CheckoutQuoteTotal when domain metrics are registered.
func ObserveCheckoutQuote(promo string) {
	if CheckoutQuoteTotal != nil {
		CheckoutQuoteTotal.WithLabelValues(promo).Inc()
	}
}

// ObserveOrderCreated increments OrderCreatedTotal when domain metrics are registered.
func ObserveOrderCreated() {
	if OrderCreatedTotal != nil {
		OrderCreatedTotal.Inc()
	}
}
