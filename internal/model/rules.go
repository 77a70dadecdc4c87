package model

// AssetRule holds per-symbol order sizing constraints: quantity precision
// and the minimum notional the venue will accept.
type AssetRule struct {
	Decimals    int     `yaml:"decimals" json:"decimals"`
	MinNotional float64 `yaml:"min_notional" json:"min_notional"`
	// Optional hard price limits; zero means unset.
	MaxBuyPrice  float64 `yaml:"max_buy_price" json:"max_buy_price"`
	MinSellPrice float64 `yaml:"min_sell_price" json:"min_sell_price"`
}

// DefaultAssetRule is applied to symbols with no configured rule.
var DefaultAssetRule = AssetRule{Decimals: 8, MinNotional: 0.05}
