// Package config provides configuration parsing for the liveroute CLI.
//
// The configuration is stored in liveroute.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "shop",
//	  "scenario": "scenarios/checkout.yaml",
//	  "serve": {
//	    "host": "localhost",
//	    "port": 4000
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "namespace": "shop",
//	    "path": "/metrics"
//	  },
//	  "router": {
//	    "teardown": "propagate",
//	    "maxRedirects": 4
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.ServeAddress())
package config
