package domain

// Channel identifies how a document reached the core.
type Channel string

const (
	ChannelUpload    Channel = "upload"
	ChannelInline    Channel = "inline"
	ChannelWebhook   Channel = "webhook"
	ChannelMCP       Channel = "mcp"
	ChannelWatch     Channel = "watch"
	ChannelReconcile Channel = "reconcile"
)

// Submission is raw text handed to the core by an intake channel.
type Submission struct {
	// Content is the raw bytes. Must be valid UTF-8.
	Content []byte

	// Filename is the optional name the document was submitted under.
	Filename string

	// Channel is the intake channel.
	Channel Channel

	// SourcePath is set when the submission mirrors an authoritative file.
	SourcePath string
}

// AuthoritativeEntry is one document in the authoritative store.
type AuthoritativeEntry struct {
	// Path is the store-relative path (e.g. "2025-11-27_login_ab12cd34.md").
	Path string

	// Text is the full file content.
	Text string

	// Title is derived from the first "# " heading or the file stem.
	Title string

	// Hash is the whole-file hash with line endings normalised.
	Hash string
}

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a note attached to a parse or validation result.
type Diagnostic struct {
	Severity Severity
	Message  string
}

// SubmitResult is the outcome of a single submission.
type SubmitResult struct {
	// Record is the stored record (new or pre-existing).
	Record *Record

	// Created is false when an identical record already existed.
	Created bool

	// Diagnostics are parse and validation notes for the submission.
	Diagnostics []Diagnostic
}
