// Package config resolves where the pd CLI connects and how long it waits.
//
// Flags beat the settings file, which beats the defaults. A settings file
// looks like:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s"
//	}
package config
