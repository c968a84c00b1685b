package preferences

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/wealthcrm/pkg/notifications"
)

// Tier is a severity class with its default channel set.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

//go:embed tiers.yaml
var tiersYAML []byte

type tierFile struct {
	Tiers map[Tier]struct {
		Channels []notifications.Channel `yaml:"channels"`
		Types    []notifications.Type    `yaml:"types"`
	} `yaml:"tiers"`
}

// TierTable maps every notification type to its severity tier and each tier
// to its default channels.
type TierTable struct {
	byType   map[notifications.Type]Tier
	channels map[Tier][]notifications.Channel
}

// ParseTierTable parses a YAML tier table. A type listed in two tiers, an
// unknown type or channel, or a missing low tier are errors.
func ParseTierTable(data []byte) (*TierTable, error) {
	var f tierFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidTiers, err)
	}
	if _, ok := f.Tiers[TierLow]; !ok {
		return nil, fmt.Errorf("%w: missing %q tier", ErrInvalidTiers, TierLow)
	}

	t := &TierTable{
		byType:   make(map[notifications.Type]Tier),
		channels: make(map[Tier][]notifications.Channel, len(f.Tiers)),
	}
	for tier, def := range f.Tiers {
		for _, ch := range def.Channels {
			if !ch.Valid() {
				return nil, fmt.Errorf("%w: tier %q: unknown channel %q", ErrInvalidTiers, tier, ch)
			}
		}
		t.channels[tier] = canonical(def.Channels)

		for _, typ := range def.Types {
			if !typ.Valid() {
				return nil, fmt.Errorf("%w: tier %q: unknown type %q", ErrInvalidTiers, tier, typ)
			}
			if prev, dup := t.byType[typ]; dup {
				return nil, fmt.Errorf("%w: type %q in tiers %q and %q", ErrInvalidTiers, typ, prev, tier)
			}
			t.byType[typ] = tier
		}
	}
	return t, nil
}

// Tier returns the tier of typ, TierLow when unlisted.
func (t *TierTable) Tier(typ notifications.Type) Tier {
	if tier, ok := t.byType[typ]; ok {
		return tier
	}
	return TierLow
}

// Channels returns a copy of the default channel set for typ.
func (t *TierTable) Channels(typ notifications.Type) []notifications.Channel {
	return slices.Clone(t.channels[t.Tier(typ)])
}

var defaultTiers = sync.OnceValue(func() *TierTable {
	t, err := ParseTierTable(tiersYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// DefaultTiers returns the embedded tier table, parsed once.
func DefaultTiers() *TierTable { return defaultTiers() }
