// Package payments checks payment method tokens with the provider before the
// account ledger records them.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentmethod"
)

const ProviderStripe = "stripe"

var (
	ErrUnknownMethod = errors.New("payment method not recognised by provider")
	ErrDetached      = errors.New("payment method is not attached to a customer")
)

// Verifier confirms that a provider token refers to a usable payment method.
type Verifier interface {
	Verify(ctx context.Context, provider, token string) error
}

// StripeVerifier looks tokens up with the Stripe API. Tokens of other
// providers are accepted as given.
type StripeVerifier struct{}

func NewStripeVerifier(key string) *StripeVerifier {
	stripe.Key = key
	return &StripeVerifier{}
}

func (v *StripeVerifier) Verify(ctx context.Context, provider, token string) error {
	if provider != ProviderStripe {
		return nil
	}

	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	pm, err := paymentmethod.Get(token, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && serr.HTTPStatusCode == 404 {
			return ErrUnknownMethod
		}
		return fmt.Errorf("stripe payment method %s: %w", token, err)
	}
	if pm.Customer == nil {
		return ErrDetached
	}
	return nil
}

// Accept trusts every token. It backs local runs without a Stripe key.
type Accept struct{}

func (Accept) Verify(context.Context, string, string) error { return nil }

// Fake rejects the tokens listed in Rejected with ErrUnknownMethod.
type Fake struct {
	Rejected map[string]bool
	Calls    []string
}

func (f *Fake) Verify(_ context.Context, _, token string) error {
	f.Calls = append(f.Calls, token)
	if f.Rejected[token] {
		return ErrUnknownMethod
	}
	return nil
}
