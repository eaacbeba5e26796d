package instruments

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Profile holds absolute price distances from entry for stop-loss and take-profit.
type Profile struct {
	Instrument string
	StopOffset decimal.Decimal
	TakeOffset decimal.Decimal
}

type Table struct {
	profiles map[string]Profile
	fallback Profile
}

func profile(instrument, stop, take string) Profile {
	return Profile{
		Instrument: instrument,
		StopOffset: decimal.RequireFromString(stop),
		TakeOffset: decimal.RequireFromString(take),
	}
}

var forexMajors = []string{"EURUSDm", "GBPUSDm", "USDJPYm", "AUDUSDm", "USDCADm", "NZDUSDm"}

func Default() *Table {
	t := &Table{
		profiles: map[string]Profile{},
		fallback: profile("", "10", "20"),
	}
	t.set(profile("BTCUSDm", "100", "200"))
	t.set(profile("XAUUSDm", "1", "2"))
	t.set(profile("XAGUSDm", "0.1", "0.2"))
	t.set(profile("USTEC", "10", "20"))
	t.set(profile("US30", "50", "100"))
	for _, symbol := range forexMajors {
		t.set(profile(symbol, "0.001", "0.002"))
	}
	return t
}

// NewTable returns the built-in table with overrides applied on top.
// An override with an empty instrument replaces the fallback profile.
func NewTable(overrides ...Profile) *Table {
	t := Default()
	for _, p := range overrides {
		if p.Instrument == "" {
			t.fallback = p
			continue
		}
		t.set(p)
	}
	return t
}

func (t *Table) set(p Profile) {
	t.profiles[p.Instrument] = p
}

// Lookup never fails: unknown instruments get the fallback offsets.
func (t *Table) Lookup(instrument string) Profile {
	if p, ok := t.profiles[instrument]; ok {
		return p
	}
	p := t.fallback
	p.Instrument = instrument
	return p
}

func (t *Table) Known(instrument string) bool {
	_, ok := t.profiles[instrument]
	return ok
}

func (t *Table) Symbols() []string {
	symbols := make([]string, 0, len(t.profiles))
	for symbol := range t.profiles {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
