package domain

import "time"

// Upstream service identities. One circuit breaker exists per service.
const (
	ServiceDDI      = "infoblox_api"
	ServiceAtcfw    = "atcfw_api"
	ServiceInsights = "insights_api"
	ServiceNIOSXaaS = "niosxaas_api"
)

const (
	DefaultBaseURL = "https://csp.infoblox.com"

	DefaultRPCListenAddress   = "0.0.0.0:8000"
	DefaultAdminListenAddress = "0.0.0.0:8001"

	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 30 * time.Second
	DefaultRequestTimeout = 30 * time.Second

	DefaultBreakerFailureThreshold = 5
	DefaultBreakerResetTimeout     = 60 * time.Second

	DefaultCacheTTL             = 300 * time.Second
	DefaultCacheCapacityPerTool = 1000

	DefaultRetryMaxAttempts = 12
	DefaultRetryBackoffBase = 5 * time.Second
	DefaultRetryBackoffCap  = 30 * time.Second

	DefaultShutdownGrace = 10 * time.Second

	DefaultLatencySampleSize = 1000
	DefaultHealthWindow      = 5 * time.Minute

	// Error-rate bands for the derived health status.
	DegradedErrorRate  = 0.05
	UnhealthyErrorRate = 0.25

	// Cache hit rates below this floor mark the gateway degraded once
	// enough cache-eligible traffic has been observed.
	DefaultCacheHitRateFloor = 0.10

	DefaultLogFormat = "json"
	DefaultLogLevel  = "info"
)
