package providers

import (
	"os"
	"strings"

	"github.com/northstar-pm/northstar/pkg/config"
)

// KeySet is one provider's credentials: a primary key plus optional
// alternates drawn by the rotation strategies. An empty Primary means
// "no credential".
type KeySet struct {
	Primary    string
	Alternates []string
}

// normalizeKeySet trims whitespace and drops empty alternates so the
// rotation pool never contains blanks.
func normalizeKeySet(ks KeySet) KeySet {
	out := KeySet{Primary: strings.TrimSpace(ks.Primary)}
	for _, alt := range ks.Alternates {
		if alt = strings.TrimSpace(alt); alt != "" {
			out.Alternates = append(out.Alternates, alt)
		}
	}
	return out
}

// IsEmpty reports whether the set holds no usable credential.
func (k KeySet) IsEmpty() bool {
	return k.Primary == ""
}

// All returns the rotation pool: primary first, then alternates.
// Empty when the set holds no credential.
func (k KeySet) All() []string {
	if k.IsEmpty() {
		return nil
	}
	keys := make([]string, 0, 1+len(k.Alternates))
	keys = append(keys, k.Primary)
	keys = append(keys, k.Alternates...)
	return keys
}

// readEnvKeys builds a key set from the provider's configured environment
// variables. The plural variable supplies comma-separated alternates.
func readEnvKeys(pcfg *config.ProviderConfig) KeySet {
	ks := KeySet{Primary: strings.TrimSpace(os.Getenv(pcfg.APIKeyEnv))}
	if pcfg.AltKeysEnv == "" {
		return ks
	}
	for _, alt := range strings.Split(os.Getenv(pcfg.AltKeysEnv), ",") {
		if alt = strings.TrimSpace(alt); alt != "" {
			ks.Alternates = append(ks.Alternates, alt)
		}
	}
	return ks
}
