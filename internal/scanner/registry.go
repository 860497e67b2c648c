package scanner

import (
	"maps"

	"solana-token-scanner/internal/config"
	"solana-token-scanner/internal/connector"
	"solana-token-scanner/internal/domain"
)

// Factory builds the connector for one source.
type Factory func(cfg config.SourceConfig, deps connector.Deps) connector.Connector

// Jupiter and Helius are reserved: they have config blocks but no factory.
var defaultRegistry = map[domain.Source]Factory{
	domain.SourcePumpFun: func(cfg config.SourceConfig, deps connector.Deps) connector.Connector {
		return connector.NewPumpFun(cfg, deps)
	},
	domain.SourceMoonshot: func(cfg config.SourceConfig, deps connector.Deps) connector.Connector {
		return connector.NewMoonshot(cfg, deps)
	},
	domain.SourceDexscreener: func(cfg config.SourceConfig, deps connector.Deps) connector.Connector {
		return connector.NewDexscreener(cfg, deps)
	},
	domain.SourceBirdeye: func(cfg config.SourceConfig, deps connector.Deps) connector.Connector {
		return connector.NewBirdeye(cfg, deps)
	},
	domain.SourceRaydium: func(cfg config.SourceConfig, deps connector.Deps) connector.Connector {
		return connector.NewRaydium(cfg, deps)
	},
}

// DefaultRegistry returns a copy of the built-in connector factories.
func DefaultRegistry() map[domain.Source]Factory {
	return maps.Clone(defaultRegistry)
}
