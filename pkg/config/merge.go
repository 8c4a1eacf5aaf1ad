package config

// mergeProviders merges built-in and user-defined provider configurations.
// User-defined providers override built-in providers of the same type,
// field by field: an override may change just the tier table or just the
// key env without restating the rest.
func mergeProviders(builtinProviders map[ProviderType]ProviderConfig, userProviders map[ProviderType]ProviderConfig) map[ProviderType]*ProviderConfig {
	result := make(map[ProviderType]*ProviderConfig)

	// First, add built-in providers
	for typ, provider := range builtinProviders {
		providerCopy := provider
		providerCopy.Tiers = copyTiers(provider.Tiers)
		result[typ] = &providerCopy
	}

	// Then, layer user-defined providers on top
	for typ, userProvider := range userProviders {
		base, exists := result[typ]
		if !exists {
			providerCopy := userProvider
			providerCopy.Tiers = copyTiers(userProvider.Tiers)
			if providerCopy.Type == "" {
				providerCopy.Type = typ
			}
			result[typ] = &providerCopy
			continue
		}

		if userProvider.APIKeyEnv != "" {
			base.APIKeyEnv = userProvider.APIKeyEnv
		}
		if userProvider.AltKeysEnv != "" {
			base.AltKeysEnv = userProvider.AltKeysEnv
		}
		if userProvider.BaseURL != "" {
			base.BaseURL = userProvider.BaseURL
		}
		for tier, tm := range userProvider.Tiers {
			if base.Tiers == nil {
				base.Tiers = make(map[ModelTier]TierModel)
			}
			merged := base.Tiers[tier]
			if tm.Model != "" {
				merged.Model = tm.Model
			}
			if tm.TokenLimit > 0 {
				merged.TokenLimit = tm.TokenLimit
			}
			base.Tiers[tier] = merged
		}
	}

	return result
}

// copyTiers returns a defensive copy of a tier table.
func copyTiers(tiers map[ModelTier]TierModel) map[ModelTier]TierModel {
	if tiers == nil {
		return nil
	}
	copied := make(map[ModelTier]TierModel, len(tiers))
	for k, v := range tiers {
		copied[k] = v
	}
	return copied
}

// mergeMCPServers converts user-defined MCP server configurations into
// registry form. There are no built-in servers; external systems are
// deployment-specific.
func mergeMCPServers(userServers map[string]MCPServerConfig) map[string]*MCPServerConfig {
	result := make(map[string]*MCPServerConfig)
	for id, userServer := range userServers {
		serverCopy := userServer
		result[id] = &serverCopy
	}
	return result
}
