package config

// mergeConfigs merges an override configuration into a base configuration.
// Values set in the override replace the base; unset fields keep the base
// value. Neither input is mutated.
func mergeConfigs(base, override *Config) *Config {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base

	if override.Version != "" {
		merged.Version = override.Version
	}

	merged.Providers = mergeProviders(base.Providers, override.Providers)
	merged.Scan = mergeScan(base.Scan, override.Scan)
	merged.Watch = mergeWatch(base.Watch, override.Watch)
	merged.Extensions = mergeExtensions(base.Extensions, override.Extensions)

	return &merged
}

func mergeProviders(base, override *ProvidersConfig) *ProvidersConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	return &ProvidersConfig{
		Claude: mergeProvider(base.Claude, override.Claude),
		Codex:  mergeProvider(base.Codex, override.Codex),
	}
}

func mergeProvider(base, override *ProviderConfig) *ProviderConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.Enabled != nil {
		merged.Enabled = override.Enabled
	}
	if override.Home != "" {
		merged.Home = override.Home
	}
	return &merged
}

func mergeScan(base, override *ScanConfig) *ScanConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.Ignore != nil {
		merged.Ignore = override.Ignore
	}
	if override.IncludeLegacy != nil {
		merged.IncludeLegacy = override.IncludeLegacy
	}
	if override.MaxDepth != 0 {
		merged.MaxDepth = override.MaxDepth
	}
	return &merged
}

func mergeWatch(base, override *WatchConfig) *WatchConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := *base
	if override.DebounceMs != 0 {
		merged.DebounceMs = override.DebounceMs
	}
	if override.PollInterval != "" {
		merged.PollInterval = override.PollInterval
	}
	return &merged
}

// mergeExtensions merges extension maps recursively so a fragment can set a
// single nested key without clobbering sibling settings.
func mergeExtensions(base, override map[string]interface{}) map[string]interface{} {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := make(map[string]interface{}, len(base)+len(override))
	for key, value := range base {
		merged[key] = value
	}
	for key, value := range override {
		baseMap, baseOk := merged[key].(map[string]interface{})
		overrideMap, overrideOk := value.(map[string]interface{})
		if baseOk && overrideOk {
			merged[key] = mergeExtensions(baseMap, overrideMap)
			continue
		}
		merged[key] = value
	}
	return merged
}
