package webhookintake

import "github.com/Ap3pp3rs94/escrow-timer/internal/domain"

// providerEventTypes maps the escrow program's instruction-log type
// codes to the internal tagged effect set. Exhaustiveness over
// domain.EffectKind is checked by TestEffectMappingCoversAllEffectKinds
// in intake_test.go;
// a provider code with no entry here is simply dropped (§4.5.3), never
// an error.
var providerEventTypes = map[string]domain.EffectKind{
	"ESCROW_FUNDED":      domain.EffectDealFunded,
	"DELIVERY_CONFIRMED": domain.EffectDealDelivered,
	"DISPUTE_OPENED":     domain.EffectDealDisputed,
	"FUNDS_RELEASED":     domain.EffectDealReleased,
	"FUNDS_REFUNDED":     domain.EffectDealRefunded,
}

// mapEffect returns the internal effect kind for a provider type code
// and whether it was recognized.
func mapEffect(providerType string) (domain.EffectKind, bool) {
	kind, ok := providerEventTypes[providerType]
	return kind, ok
}
