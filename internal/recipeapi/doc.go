// Package recipeapi provides an HTTP client for the recipe extraction backend.
//
// # Overview
//
// The backend does the heavy lifting (video transcription, ingredient
// parsing, image generation). This package only moves JSON: every method is a
// single request/response with no retries. Retry and polling policy belong
// to the callers in internal/extraction and internal/gallery.
//
// # Files
//
//   - client.go: Client, the narrow per-surface interfaces, request plumbing
//   - types.go: payloads mirroring the backend schema
//   - errors.go: APIError, TransportError and classification helpers
//
// # Client Usage
//
//	client, err := recipeapi.NewClient("http://localhost:3000", creds)
//	if err != nil {
//		return err
//	}
//	job, err := client.SubmitExtraction(ctx, "https://youtu.be/abc123")
//
// # Authentication
//
// A CredentialSource supplies the per-device key, sent as X-API-Key on every
// request. An empty key sends the request unauthenticated, which is how the
// first registration call goes out.
//
// # Errors
//
// Three classes are distinguishable with errors.As:
//
//   - *TransportError: no response was obtained
//   - *APIError: non-2xx response; Message is the server's "error" field, or
//     "HTTP <status>" when the body is not JSON
//   - IsUnauthorized(err): the 401 case, which triggers re-registration
//
// # Shopping Lists
//
// The backend sends shopping lists as a JSON object keyed by category. The
// category order is meaningful, so ShoppingList decodes into an ordered
// slice and encodes back in the same order.
package recipeapi
