package platform

import (
	"context"

	"github.com/on-the-ground/effect_ive_platform/effects/binding"
	"github.com/on-the-ground/effect_ive_platform/effects/configkeys"
)

// LoadHostConfig reads the host handler sizing from the binding scope in ctx, if any,
// and falls back to DefaultHostConfig for anything unbound.
func LoadHostConfig(ctx context.Context) HostConfig {
	cfg := DefaultHostConfig()
	cfg.BufferSize = binding.GetOrDefault(ctx, configkeys.ConfigPlatformHostBufferSize, cfg.BufferSize)
	cfg.NumWorkers = binding.GetOrDefault(ctx, configkeys.ConfigPlatformHostNumWorkers, cfg.NumWorkers)
	return cfg
}
