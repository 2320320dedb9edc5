// Package httpapi exposes document intake and management over HTTP.
//
// Routes live under /api/v1:
//
//	POST   /documents                      submit inline JSON {content, filename}
//	POST   /documents/upload               submit a multipart "file"
//	POST   /webhooks/documents             submit from a webhook (JSON or raw text)
//	GET    /documents                      list records (category, status, offset, limit)
//	GET    /documents/{id}                 fetch a record
//	GET    /documents/{id}/markdown        render a record as markdown
//	PATCH  /documents/{id}                 update status or category
//	DELETE /documents/{id}                 delete a record (?purge=true removes the file)
//	GET    /fingerprints/{hash}            fetch a record by fingerprint
//	POST   /reconcile                      run a reconciliation pass
//	GET    /reconcile/status               in-process reconciliation status
//	POST   /export                         write mirror-only records to the document store
//
// Errors are JSON objects {"error": "..."} with a status derived from the
// domain sentinel errors. The API carries no authentication.
package httpapi
