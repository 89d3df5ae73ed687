package currency

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Code is a supported display currency.
type Code string

const (
	USD Code = "usd"
	EUR Code = "eur"
	INR Code = "inr"

	Default = USD
)

// ErrInvalidCurrency is returned for codes outside the supported set.
var ErrInvalidCurrency = errors.New("currency: invalid currency")

// Option is one entry of the currency selector.
type Option struct {
	Code   Code   `json:"code"`
	Label  string `json:"label"`
	Symbol string `json:"symbol"`
}

var options = []Option{
	{Code: USD, Label: "USD", Symbol: "$"},
	{Code: EUR, Label: "EUR", Symbol: "€"},
	{Code: INR, Label: "INR", Symbol: "₹"},
}

var validate = validator.New()

// oneofTag mirrors options.
const oneofTag = "required,oneof=usd eur inr"

// All returns the selector options in display order.
func All() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}

// Parse normalizes s (trim, lower case) and validates it.
func Parse(s string) (Code, error) {
	c := Code(strings.ToLower(strings.TrimSpace(s)))
	if err := validate.Var(string(c), oneofTag); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func (c Code) IsValid() bool {
	_, ok := c.option()
	return ok
}

func (c Code) option() (Option, bool) {
	for _, o := range options {
		if o.Code == c {
			return o, true
		}
	}
	return Option{}, false
}

// Symbol returns the display symbol, "$" for unknown codes.
func (c Code) Symbol() string {
	if o, ok := c.option(); ok {
		return o.Symbol
	}
	return "$"
}

// Label returns the upper-case label, e.g. "EUR".
func (c Code) Label() string {
	if o, ok := c.option(); ok {
		return o.Label
	}
	return strings.ToUpper(string(c))
}

func (c Code) String() string {
	return string(c)
}
