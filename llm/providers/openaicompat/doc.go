// Package openaicompat provides the shared chat-completions adapter used by
// the OpenAI and OpenRouter providers.
//
// Both vendors speak the same request and response envelopes. Vendor packages
// embed openaicompat.Provider and only override what differs:
//
//   - Provider name and upstream model
//   - Base URL and endpoint path
//   - Credential prefix and minimum length
//   - Extra headers (OpenRouter attribution headers)
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:     "openrouter",
//	    BaseURL:          "https://openrouter.ai",
//	    EndpointPath:     "/api/v1/chat/completions",
//	    CredentialPrefix: "sk-or-",
//	    CredentialMinLen: 20,
//	}, desc, logger)
package openaicompat
