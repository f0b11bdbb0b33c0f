// Package config provides configuration parsing for vmsync clients.
//
// The configuration is stored in vmsync.json, or in vmsync.toml with the
// same keys. This package handles loading, saving, defaulting and validating
// it.
//
// # Configuration File Structure
//
//	{
//	  "hub": {
//	    "url": "wss://example.com/dotnetify",
//	    "headers": {"Authorization": "Bearer ..."},
//	    "handshakeTimeout": "10s",
//	    "writeTimeout": "10s",
//	    "pingInterval": "30s",
//	    "reconnect": {
//	      "initialDelay": "500ms",
//	      "maxDelay": "30s",
//	      "multiplier": 2,
//	      "jitter": true
//	    }
//	  },
//	  "debug": false,
//	  "metrics": {
//	    "enabled": true,
//	    "addr": ":9090",
//	    "namespace": "vmsync"
//	  },
//	  "tracing": {
//	    "enabled": true,
//	    "tracerName": "vmsync"
//	  }
//	}
//
// The TOML form of the same file:
//
//	debug = false
//
//	[hub]
//	url = "wss://example.com/dotnetify"
//	writeTimeout = "10s"
//
//	[hub.reconnect]
//	initialDelay = "500ms"
//	maxDelay = "30s"
//
// Durations are written as Go duration strings and read through the
// accessor methods on each section, which apply defaults for empty values.
package config
