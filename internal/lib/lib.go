// Package lib groups integrations that sit outside the handler/service/
// repository layering: the LLM client, object storage, background jobs, and
// the email client.
package lib
