// Package config provides configuration parsing for the surface command.
//
// The configuration is stored in surface.json (or surface.yaml) next to
// the control page. This package handles loading, saving, and validating
// configuration.
//
// # Configuration File Structure
//
//	{
//	  "page": "panel.html",
//	  "url": "https://mixer.local/panel",
//	  "debug": false,
//	  "autoRescan": true,
//	  "transport": {
//	    "path": "/updates",
//	    "subscribeDelay": "1s",
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s",
//	    "reconnect": true,
//	    "reconnectDelay": "5s"
//	  },
//	  "http": {
//	    "addr": "localhost:9090"
//	  },
//	  "s3": {
//	    "region": "eu-west-1",
//	    "endpoint": "http://localhost:9000",
//	    "usePathStyle": true
//	  }
//	}
//
// Durations are Go duration strings. Bare numbers are milliseconds.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	t := transport.New(cfg.TransportConfig())
package config
