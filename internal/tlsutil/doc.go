// Package tlsutil centralizes hardened TLS settings for outbound HTTP
// clients: TLS 1.2 minimum and AEAD-only cipher suites.
package tlsutil
