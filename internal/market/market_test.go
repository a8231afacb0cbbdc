package market_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"stocknotes/internal/market"
)

func TestMarketSuffixes(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".ST", market.MarketSTO.Suffix())
	require.Equal(t, "", market.MarketUSA.Suffix())
	require.Equal(t, ".MI", market.MarketITA.Suffix())
	require.Equal(t, ".PA", market.MarketFRA.Suffix())
}

func TestMarkets_ProbeOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []market.Market{
		market.MarketSTO,
		market.MarketUSA,
		market.MarketITA,
		market.MarketFRA,
	}, market.Markets())
}

func TestParseMarket(t *testing.T) {
	t.Parallel()

	m, err := market.ParseMarket(" sto ")
	require.NoError(t, err)
	require.Equal(t, market.MarketSTO, m)

	_, err = market.ParseMarket("LON")
	require.Error(t, err)

	_, err = market.ParseMarket("")
	require.Error(t, err)
}

func TestMarketValid(t *testing.T) {
	t.Parallel()

	require.True(t, market.MarketUSA.Valid())
	require.False(t, market.Market("XXX").Valid())
}
