package props

import (
	"strings"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

const (
	MarketPlayerPoints   = "player_points"
	MarketPlayerRebounds = "player_rebounds"
	MarketPlayerAssists  = "player_assists"
)

var statTypeByMarket = map[string]gamelog.StatType{
	MarketPlayerPoints:   gamelog.StatPoints,
	MarketPlayerRebounds: gamelog.StatRebounds,
	MarketPlayerAssists:  gamelog.StatAssists,
}

// StatTypeForMarket maps a provider market id to a stat type. Unrecognized
// markets fall back to Points and report known=false so the caller can log
// and count them instead of silently mis-filing new market types.
func StatTypeForMarket(marketID string) (statType gamelog.StatType, known bool) {
	key := strings.ToLower(strings.TrimSpace(marketID))
	if mapped, ok := statTypeByMarket[key]; ok {
		return mapped, true
	}
	return gamelog.StatPoints, false
}
