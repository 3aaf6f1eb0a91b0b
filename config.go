package chanrpc

import "github.com/imdario/mergo"

// Config defines properties that configure Router behaviour.
type Config struct {
	// ID is this endpoint's identity, used as Src in emitted frames.
	ID string

	// MaxQueueSize bounds the outbound queue (section 4.3). Zero is
	// replaced with DefaultConfig.MaxQueueSize when resolved via
	// resolveConfig.
	MaxQueueSize int
}

// DefaultConfig supplies defaults applied to any zero-valued fields of a
// Config passed to Create.
var DefaultConfig = &Config{
	ID:           "",
	MaxQueueSize: 64,
}

// resolveConfig returns a copy of cfg with zero fields filled in from
// DefaultConfig, mirroring the Merge-against-defaults pattern used to
// resolve netconf/client.Config. A nil cfg resolves to DefaultConfig
// outright, so Create(ctx, nil, codec) is equivalent to passing &Config{}.
func resolveConfig(cfg *Config) *Config {
	if cfg == nil {
		resolved := *DefaultConfig
		return &resolved
	}
	resolved := *cfg
	_ = mergo.Merge(&resolved, DefaultConfig)
	return &resolved
}
