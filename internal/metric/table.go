package metric

import "github.com/towerstats/analyzer-cli/internal/quantity"

// builtinDefs is the static metric table. Extending the catalog means adding
// a row here; nothing downstream switches on keys directly.
var builtinDefs = []Definition{
	{Key: "coins_earned", Unit: quantity.UnitCurrency, Category: CategoryEconomy,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "coins_per_hour", Unit: quantity.UnitCurrency, Category: CategoryEconomy,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "cash_earned", Unit: quantity.UnitCurrency, Category: CategoryEconomy,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "interest_earned", Unit: quantity.UnitCurrency, Category: CategoryEconomy,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "cells_earned", Unit: quantity.UnitCount, Category: CategoryFetch,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "reroll_shards_earned", Unit: quantity.UnitCount, Category: CategoryFetch,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "gems_earned", Unit: quantity.UnitCount, Category: CategoryFetch,
		GroupDims: []GroupDim{GroupByTime}},
	{Key: "damage_dealt", Unit: quantity.UnitDamage, Category: CategoryCombat,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "damage_taken", Unit: quantity.UnitDamage, Category: CategoryCombat,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "enemies_destroyed", Unit: quantity.UnitCount, Category: CategoryCombat,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "highest_wave", Unit: quantity.UnitCount, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByTier, GroupByPreset}},
	{Key: "real_time", Unit: quantity.UnitDuration, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "game_time", Unit: quantity.UnitDuration, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByTier}},
	{Key: "uptime_percent", Unit: quantity.UnitPercent, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByEntity}},
	{Key: "cooldown_ratio", Unit: quantity.UnitMultiplier, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByEntity}},
	{Key: "effect_seconds_per_minute", Unit: quantity.UnitDuration, Category: CategoryUtility,
		GroupDims: []GroupDim{GroupByTime, GroupByEntity}},
}

var defaultRegistry = MustNew(builtinDefs)

// Default returns the process-wide built-in registry.
func Default() *Registry {
	return defaultRegistry
}
