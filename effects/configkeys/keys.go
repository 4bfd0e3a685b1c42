package configkeys

const (
	delimiter = "."

	ConfigPrefix = "config"

	ConfigPlatformPrefix = ConfigPrefix + delimiter + "platform"

	ConfigPlatformHostPrefix     = ConfigPlatformPrefix + delimiter + "host"
	ConfigPlatformHostBufferSize = ConfigPlatformHostPrefix + delimiter + "buffer_size"
	ConfigPlatformHostNumWorkers = ConfigPlatformHostPrefix + delimiter + "num_workers"

	ConfigPlatformHarnessPrefix   = ConfigPlatformPrefix + delimiter + "harness"
	ConfigPlatformHarnessExpected = ConfigPlatformHarnessPrefix + delimiter + "expected"
)
