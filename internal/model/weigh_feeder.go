package model

// WeighFeederTag is one loss-of-weight row. The four readings are kept as the
// typed text; an empty string means not yet entered.
type WeighFeederTag struct {
	Code      string `json:"code" yaml:"code"`
	Name      string `json:"name" yaml:"name"`
	BinBefore string `json:"binBefore" yaml:"-"`
	BinAfter  string `json:"binAfter" yaml:"-"`
	TotBefore string `json:"totBefore" yaml:"-"`
	TotAfter  string `json:"totAfter" yaml:"-"`
}
