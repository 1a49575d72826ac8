package core

import "time"

// HTTP client config constants. No overall request timeout is set by default.
const (
	HTTPMaxIdleConns          = 4
	HTTPMaxIdleConnsPerHost   = 2
	HTTPMaxConnsPerHost       = 2
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPResponseHeaderTimeout = 5 * time.Minute
	HTTPExpectContinueTimeout = 5 * time.Second
)

// History constants
const (
	HistoryMaxRecords = 1000
	HistoryRedisKey   = "chatrunner:runs"
	HistoryOpTimeout  = 5 * time.Second
)
