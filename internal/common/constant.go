package common

// DefaultMimeType is assumed for file artefacts that carry no MIME type.
const DefaultMimeType = "application/octet-stream"
