// Package config loads the codelens configuration.
//
// Values are layered: Default, then the TOML file (DefaultPath unless another
// path is given), then .env files and the environment. Environment variables
// use the CODELENS_ prefix; the conventional OPENAI_API_KEY, GEMINI_API_KEY,
// OPENAI_BASE_URL, GEMINI_API_BASE_URL and NATS_URL are honored as well.
//
//	provider = "gemini"
//	stream = true
//
//	[gemini]
//	api_key = "AIza..."
//
//	[store]
//	driver = "sqlite"
//	path = "/var/lib/codelens/codelens.sqlite"
package config
